package stream

import "github.com/muktar11/ledgersafe/internal/domain"

// Message types exchanged with the client, matching
// original_source/events/consumers.py's receive()/send_event() contract.
const (
	msgSubscribe  = "subscribe"
	msgSubscribed = "subscribed"
	msgGetLatest  = "get_latest"
	msgEvents     = "events"
	msgEvent      = "event"
	msgError      = "error"
)

// clientMessage is the envelope a client sends.
type clientMessage struct {
	Type           string             `json:"type"`
	EventTypes     []domain.EventType `json:"event_types,omitempty"`
	SequenceNumber int64              `json:"sequence_number,omitempty"`
}

// serverMessage is the envelope sent back to a client. Only the field
// relevant to Type is populated.
type serverMessage struct {
	Type       string             `json:"type"`
	EventTypes []domain.EventType `json:"event_types,omitempty"`
	Events     []domain.Event     `json:"events,omitempty"`
	Event      *domain.Event      `json:"event,omitempty"`
	Message    string             `json:"message,omitempty"`
}
