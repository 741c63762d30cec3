package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muktar11/ledgersafe/internal/domain"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_JoinIncrementsConnectionCount(t *testing.T) {
	h := testHub()
	h.Join(&Conn{ID: "a", Send: make(chan []byte, 1)})
	h.Join(&Conn{ID: "b", Send: make(chan []byte, 1)})

	assert.Equal(t, 2, h.ConnectionCount())
}

func TestHub_LeaveRemovesConnection(t *testing.T) {
	h := testHub()
	h.Join(&Conn{ID: "a", Send: make(chan []byte, 1)})
	h.Leave("a")

	assert.Equal(t, 0, h.ConnectionCount())
}

func TestHub_LeaveUnknownConnIsNoop(t *testing.T) {
	h := testHub()
	assert.NotPanics(t, func() { h.Leave("ghost") })
}

func TestHub_BroadcastDeliversToAllConns(t *testing.T) {
	h := testHub()
	a := &Conn{ID: "a", Send: make(chan []byte, 1)}
	b := &Conn{ID: "b", Send: make(chan []byte, 1)}
	h.Join(a)
	h.Join(b)

	evt := domain.Event{ID: "evt-1", EventType: domain.EventType("payout.completed"), SequenceNumber: 7}
	h.Broadcast(evt)

	for _, conn := range []*Conn{a, b} {
		select {
		case payload := <-conn.Send:
			var msg serverMessage
			require.NoError(t, json.Unmarshal(payload, &msg))
			assert.Equal(t, msgEvent, msg.Type)
			require.NotNil(t, msg.Event)
			assert.Equal(t, "evt-1", msg.Event.ID)
		case <-time.After(time.Second):
			t.Fatalf("conn %s did not receive broadcast", conn.ID)
		}
	}
}

func TestHub_BroadcastDropsWhenBufferFull(t *testing.T) {
	h := testHub()
	conn := &Conn{ID: "a", Send: make(chan []byte)}
	h.Join(conn)

	assert.NotPanics(t, func() {
		h.Broadcast(domain.Event{ID: "evt-1"})
	})
}
