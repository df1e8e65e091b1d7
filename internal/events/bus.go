package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened on the fulfillment pipeline.
type Type string

const (
	ComandaCreated     Type = "comanda.created"
	ComandaUpdated     Type = "comanda.updated"
	ComandaRemoved     Type = "comanda.removed"
	BoardCleared       Type = "board.cleared"
	BoardRefreshed     Type = "board.refreshed"
	ProductionRecorded Type = "production.recorded"
)

// Event is the notification fanned out to board readers (websocket hub,
// reconciliation observers). It carries identifiers only; readers reload the
// state they care about through the store.
type Event struct {
	Type      Type      `json:"type"`
	TenantID  string    `json:"tenantId"`
	Area      string    `json:"area,omitempty"`
	ComandaID string    `json:"comandaId,omitempty"`
	At        time.Time `json:"at"`
}

// Bus is the in-process publish/notify channel between the comanda state
// machine, the production ledger, and their readers. Publishing never blocks:
// a subscriber that cannot keep up misses events and is expected to recover
// through the periodic reconciliation pass.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]chan Event)}
}

// Subscribe registers a new reader and returns its id plus the delivery
// channel. The id is needed to unsubscribe.
func (b *Bus) Subscribe(buffer int) (string, <-chan Event) {
	if buffer <= 0 {
		buffer = 16
	}
	id := uuid.NewString()
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a reader and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish delivers the event to every subscriber without blocking. Full
// subscriber buffers are skipped.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount returns the number of registered readers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
