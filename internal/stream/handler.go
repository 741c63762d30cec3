package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/muktar11/ledgersafe/internal/eventlog"
	"github.com/muktar11/ledgersafe/internal/repository"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// upgrader accepts connections from any origin. The streaming surface is
// read-only and carries no credentials beyond what authenticated the HTTP
// request that preceded the upgrade, so a permissive origin check is safe.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections to the event-streaming WebSocket and
// drives the subscribe / get_latest / events / event message contract.
type Handler struct {
	hub    *Hub
	events *eventlog.Log
	db     repository.DBTX
	logger *slog.Logger
}

// NewHandler constructs a streaming Handler.
func NewHandler(hub *Hub, events *eventlog.Log, db repository.DBTX, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, events: events, db: db, logger: logger}
}

// ServeHTTP handles GET /ws/events, upgrading to a WebSocket connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	conn := &Conn{ID: uuid.NewString(), Send: make(chan []byte, sendBufferSize)}
	h.hub.Join(conn)
	h.logger.Info("ws client connected", "conn_id", conn.ID)

	done := make(chan struct{})
	go h.writePump(ws, conn, done)
	h.readPump(r.Context(), ws, conn, done)
}

// readPump handles incoming client frames until the connection closes,
// mirroring consumers.py's receive(): subscribe echoes back the requested
// event_types, get_latest answers with events since sequence_number.
func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, conn *Conn, done chan struct{}) {
	defer func() {
		close(done)
		h.hub.Leave(conn.ID)
		ws.Close()
		h.logger.Info("ws client disconnected", "conn_id", conn.ID)
	}()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.send(conn, serverMessage{Type: msgError, Message: "invalid JSON"})
			continue
		}

		switch msg.Type {
		case msgSubscribe:
			h.send(conn, serverMessage{Type: msgSubscribed, EventTypes: msg.EventTypes})
		case msgGetLatest:
			events, err := h.events.ReadAfter(ctx, h.db, msg.SequenceNumber, 100)
			if err != nil {
				h.logger.Error("get_latest read failed", "error", err, "conn_id", conn.ID)
				h.send(conn, serverMessage{Type: msgError, Message: "failed to load events"})
				continue
			}
			h.send(conn, serverMessage{Type: msgEvents, Events: events})
		default:
			h.send(conn, serverMessage{Type: msgError, Message: "unknown message type"})
		}
	}
}

// writePump drains conn.Send to the socket and pings on an interval to
// detect dead connections, stopping when readPump signals done.
func (h *Handler) writePump(ws *websocket.Conn, conn *Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-conn.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) send(conn *Conn, msg serverMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal ws message", "error", err)
		return
	}
	select {
	case conn.Send <- payload:
	default:
		h.logger.Warn("ws send buffer full, dropping message", "conn_id", conn.ID)
	}
}
