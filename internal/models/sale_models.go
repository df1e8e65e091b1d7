package models

import "time"

// Sale is a read-only projection of a finalized sale that has not yet been
// run through the consumption aggregator. Once marked processed it is
// excluded from future batches by the sales service.
type Sale struct {
	ID          string    `json:"id"`
	TableNumber string    `json:"tableNumber,omitempty"`
	TableID     string    `json:"tableId,omitempty"`
	Waiter      string    `json:"waiter,omitempty"`
	Total       float64   `json:"total"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SoldLineItem is one product line of a finalized sale. OrderAreaID is the
// optional preparation-area assignment used by the router; nil, zero, or an
// id absent from the directory all route the item to the General area.
type SoldLineItem struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image,omitempty"`
	OrderAreaID *int64  `json:"order_area_id,omitempty"`
	Price       float64 `json:"price,omitempty"`
}
