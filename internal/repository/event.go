package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/muktar11/ledgersafe/internal/domain"
)

type eventRepo struct{}

// NewEventRepository returns a pgx-backed EventRepository.
func NewEventRepository() EventRepository {
	return &eventRepo{}
}

func (r *eventRepo) FindByEventID(ctx context.Context, db DBTX, eventID string) (*domain.Event, error) {
	row := db.QueryRow(ctx, `
		SELECT event_id, event_type, aggregate_type, aggregate_id, event_data, metadata, sequence_number, created_at
		FROM events WHERE event_id = $1`, eventID)
	return scanEvent(row)
}

// NextSequence locks the single-row sequence anchor and returns the value to
// assign to the next event. Using an explicit anchor row (rather than
// MAX(sequence_number)) means the lock is held until the appending
// transaction ends, not just for the duration of an aggregate query, so two
// concurrent appends
// serialize correctly instead of both reading the same max and colliding on
// the unique constraint.
func (r *eventRepo) NextSequence(ctx context.Context, tx pgx.Tx) (int64, error) {
	var next int64
	err := tx.QueryRow(ctx, `
		UPDATE event_sequence SET value = value + 1 WHERE id = 1
		RETURNING value`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance event sequence: %w", err)
	}
	return next, nil
}

func (r *eventRepo) Append(ctx context.Context, tx pgx.Tx, event domain.Event) (*domain.Event, error) {
	seq, err := r.NextSequence(ctx, tx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO events (event_id, event_type, aggregate_type, aggregate_id, event_data, metadata, sequence_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING event_id, event_type, aggregate_type, aggregate_id, event_data, metadata, sequence_number, created_at`,
		event.ID, string(event.EventType), string(event.AggregateType), event.AggregateID, event.EventData, event.Metadata, seq)
	return scanEvent(row)
}

func (r *eventRepo) ReadAfter(ctx context.Context, db DBTX, after int64, limit int) ([]domain.Event, error) {
	rows, err := db.Query(ctx, `
		SELECT event_id, event_type, aggregate_type, aggregate_id, event_data, metadata, sequence_number, created_at
		FROM events WHERE sequence_number > $1 ORDER BY sequence_number ASC LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType, aggregateType string
		if err := rows.Scan(&e.ID, &eventType, &aggregateType, &e.AggregateID, &e.EventData, &e.Metadata, &e.SequenceNumber, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		e.AggregateType = domain.AggregateType(aggregateType)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var eventType, aggregateType string
	err := row.Scan(&e.ID, &eventType, &aggregateType, &e.AggregateID, &e.EventData, &e.Metadata, &e.SequenceNumber, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.EventType = domain.EventType(eventType)
	e.AggregateType = domain.AggregateType(aggregateType)
	return &e, nil
}
