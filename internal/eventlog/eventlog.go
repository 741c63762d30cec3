// Package eventlog implements the append-only, strictly-ordered event
// stream that other modules use as an audit trail and (for the
// read-model projector) a source of truth for replay. Grounded on
// original_source/events/models.py's Event.create_event /
// get_next_sequence_number, re-expressed as Go using the Lock →
// Idempotency-check → Post shape of internal/ledger/ledger.go and the
// teacher's outbox insert (internal/repository/outbox.go, deleted) —
// except this log is never polled-and-deleted, it is the permanent record.
package eventlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// Log appends domain events within a caller-managed transaction and serves
// them back out in sequence order.
type Log struct {
	events repository.EventRepository
}

// NewLog constructs an event log over the given repository.
func NewLog(events repository.EventRepository) *Log {
	return &Log{events: events}
}

// Append idempotently records event within tx. If an event with the same
// EventID was already appended (by this call or a prior, crashed attempt),
// the existing row is returned unchanged rather than inserted twice. That
// lookup is what makes Append idempotent: a concurrent Append of the same
// EventID that passes it in another transaction is rejected by the unique
// constraint on event_id and returns an error.
func (l *Log) Append(ctx context.Context, tx pgx.Tx, eventType domain.EventType, aggregateType domain.AggregateType, aggregateID, eventID string, data, metadata []byte) (*domain.Event, error) {
	existing, err := l.events.FindByEventID(ctx, tx, eventID)
	if err != nil {
		return nil, fmt.Errorf("check existing event: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	evt := domain.Event{
		ID:            eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventData:     domain.EnsureJSON(data),
		Metadata:      domain.EnsureJSON(metadata),
	}
	inserted, err := l.events.Append(ctx, tx, evt)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	return inserted, nil
}

// ReadAfter returns events with sequence_number > after, ordered ascending,
// capped at limit. Used by the streaming surface to answer get_latest and
// by the projector to replay from a checkpoint.
func (l *Log) ReadAfter(ctx context.Context, db repository.DBTX, after int64, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	events, err := l.events.ReadAfter(ctx, db, after, limit)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
