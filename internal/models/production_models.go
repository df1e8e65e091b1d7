package models

import "time"

// ProductionRecord is an immutable trace of items that finished preparation.
// One record is emitted per completed comanda item (or per whole sale on the
// direct, no-comanda path). Records are never mutated after creation.
type ProductionRecord struct {
	ID          string        `json:"id"`
	ComandaID   string        `json:"comandaId"`
	TableNumber string        `json:"tableNumber"`
	TableID     string        `json:"tableId"`
	Waiter      string        `json:"waiter"`
	Area        string        `json:"area"`
	Items       []ComandaItem `json:"items"`
	CompletedAt time.Time     `json:"completedAt"`
	HasRecipe   bool          `json:"hasRecipe"`
}
