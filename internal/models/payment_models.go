package models

import "time"

// TransactionPayment records a payment taken against a finalized sale.
type TransactionPayment struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}
