package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"comandero_backend/internal/events"
	"comandero_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware in front.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// BoardHub fans pipeline events out to connected board screens. A screen that
// misses an event still converges through the periodic refresh tick.
type BoardHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewBoardHub creates an empty hub.
func NewBoardHub() *BoardHub {
	return &BoardHub{clients: make(map[*websocket.Conn]bool)}
}

// Run subscribes the hub to the bus and forwards every event to all connected
// screens until ctx is cancelled.
func (h *BoardHub) Run(ctx context.Context, bus *events.Bus) {
	subID, ch := bus.Subscribe(256)
	defer bus.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				utils.LogError(err, "BoardHub: failed to marshal event")
				continue
			}
			h.broadcast(payload)
		}
	}
}

func (h *BoardHub) broadcast(message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *BoardHub) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *BoardHub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected screens.
func (h *BoardHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeBoardFeed upgrades the connection and keeps it registered until the
// client goes away. Inbound messages are drained and ignored; the feed is
// one-way.
func (h *BoardHub) ServeBoardFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.LogError(err, "BoardHub: websocket upgrade failed")
		return
	}
	h.addClient(conn)

	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
