package models

import (
	"fmt"
	"strings"
	"time"
)

// GeneralArea is the synthetic preparation area that collects every sold item
// without a (valid) area assignment. It always exists, even when the area
// directory is empty or unreachable.
const GeneralArea = "General"

// POSTable is the sentinel table identifier used for counter sales that have
// no originating table session.
const POSTable = "POS"

// MinutesPerUnit is the preparation-time estimate applied per item unit when
// deriving a comanda's estimated time.
const MinutesPerUnit = 5

// ItemStatus is the closed set of per-item lifecycle states on a comanda.
// Transitions are linear (pending -> preparing -> ready -> completed);
// "preparing" may be skipped when an item is started and readied in one step.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusCompleted ItemStatus = "completed"
)

// rank positions a status on the linear lifecycle. Unknown statuses rank
// before pending so normalization pushes them to pending.
func (s ItemStatus) rank() int {
	switch s {
	case ItemStatusPending:
		return 1
	case ItemStatusPreparing:
		return 2
	case ItemStatusReady:
		return 3
	case ItemStatusCompleted:
		return 4
	default:
		return 0
	}
}

// IsValid reports whether s is one of the four known statuses.
func (s ItemStatus) IsValid() bool {
	return s.rank() > 0
}

// CanTransition reports whether moving from s to next is a forward move on
// the lifecycle. Back-transitions are rejected.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	return next.IsValid() && next.rank() > s.rank()
}

// NormalizeItemStatus maps legacy or unknown status strings to a member of
// the closed enum. Anything unrecognized becomes pending.
func NormalizeItemStatus(raw string) ItemStatus {
	s := ItemStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return ItemStatusPending
	}
	return s
}

// ComandaItem is a single sold line routed onto a comanda. Its ID is the
// product identifier and is therefore not unique within the comanda when the
// same product was sold twice.
type ComandaItem struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Quantity int        `json:"quantity"`
	Image    string     `json:"image,omitempty"`
	Status   ItemStatus `json:"status"`
}

// Comanda is one kitchen ticket per (sale, preparation area).
type Comanda struct {
	ID            string        `json:"id"`
	TableNumber   string        `json:"tableNumber"`
	TableID       string        `json:"tableId"`
	Waiter        string        `json:"waiter"`
	Items         []ComandaItem `json:"items"`
	CreatedAt     time.Time     `json:"createdAt"`
	Status        string        `json:"status,omitempty"`
	Area          string        `json:"area"`
	EstimatedTime int           `json:"estimatedTime"`
}

// ComandaID derives the ticket identifier from the originating sale and the
// preparation area it was routed to.
func ComandaID(saleID, area string) string {
	return fmt.Sprintf("%s-%s", saleID, strings.ReplaceAll(strings.ToLower(area), " ", "-"))
}

// EstimatedMinutes derives the preparation estimate as the sum over items of
// quantity x MinutesPerUnit.
func (c *Comanda) EstimatedMinutes() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity * MinutesPerUnit
	}
	return total
}

// NormalizeArea collapses the legacy string sentinels that older persisted
// data carries for "no area" into GeneralArea. Applied once, at the store
// load boundary, so the rest of the code never compares against "null" or
// "undefined" strings.
func NormalizeArea(area string) string {
	switch strings.TrimSpace(area) {
	case "", "null", "undefined":
		return GeneralArea
	}
	return area
}
