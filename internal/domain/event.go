package domain

import (
	"encoding/json"
	"time"
)

// EventType enumerates all domain event types recorded in the EventLog.
type EventType string

const (
	EventLedgerTransactionCreated EventType = "LEDGER_TRANSACTION_CREATED"
	EventPayoutCreated            EventType = "PAYOUT_CREATED"
	EventPayoutProcessing         EventType = "PAYOUT_PROCESSING"
	EventPayoutCompleted          EventType = "PAYOUT_COMPLETED"
	EventPayoutFailed             EventType = "PAYOUT_FAILED"
	EventAccountBalanceUpdated    EventType = "ACCOUNT_BALANCE_UPDATED"
)

// AggregateType enumerates the aggregate roots that the EventLog indexes by.
type AggregateType string

const (
	AggregateTransaction AggregateType = "Transaction"
	AggregatePayout      AggregateType = "Payout"
	AggregateAccount     AggregateType = "Account"
)

// Event is an immutable, globally-ordered record of a state change. Once
// appended it is never updated or deleted (spec.md §4.2, Invariant E2).
type Event struct {
	ID             string          `json:"event_id"`
	EventType      EventType       `json:"event_type"`
	AggregateType  AggregateType   `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventData      json.RawMessage `json:"event_data"`
	Metadata       json.RawMessage `json:"metadata"`
	SequenceNumber int64           `json:"sequence_number"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EnsureJSON returns data unchanged, or an empty JSON object if nil — the
// event_data/metadata columns stay schemaless but never NULL.
func EnsureJSON(data json.RawMessage) json.RawMessage {
	if data == nil {
		return json.RawMessage(`{}`)
	}
	return data
}
