// Package stream implements real-time event delivery over WebSocket.
// WebSocket delivery is not a source of truth — authoritative state lives
// in Postgres via internal/eventlog; a client that misses a push can always
// recover with a get_latest request. Adapted from internal/infra/websocket.go's
// room-based WSHub, generalized so every connection subscribes to the single
// global event stream rather than a player-scoped room.
package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/muktar11/ledgersafe/internal/domain"
)

// Hub fans out appended events to every subscribed connection.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	logger *slog.Logger
}

// Conn is one WebSocket client's outbound buffer.
type Conn struct {
	ID   string
	Send chan []byte
}

// NewHub constructs an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{conns: make(map[string]*Conn), logger: logger}
}

// Join registers a connection to receive broadcast events.
func (h *Hub) Join(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID] = conn
}

// Leave removes a connection.
func (h *Hub) Leave(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
}

// Broadcast pushes event to every connected client as an {"type":"event","event":...} message,
// mirroring original_source/events/consumers.py's send_event.
func (h *Hub) Broadcast(evt domain.Event) {
	payload, err := json.Marshal(serverMessage{Type: msgEvent, Event: &evt})
	if err != nil {
		h.logger.Error("marshal event broadcast", "error", err, "event_id", evt.ID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.conns {
		select {
		case conn.Send <- payload:
		default:
			h.logger.Warn("ws send buffer full, dropping event", "conn_id", conn.ID, "event_id", evt.ID)
		}
	}
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
