package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/muktar11/ledgersafe/internal/eventlog"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// Tailer polls the event log for newly appended rows and broadcasts them to
// the Hub. Polling rather than an in-process callback keeps the streaming
// surface honest about not being a source of truth: a tailer restart or a
// missed tick only delays a push, it never loses an event, since every
// client can always recover via get_latest. Shaped like the teacher's
// cmd/outbox-consumer ticker loop.
type Tailer struct {
	events   *eventlog.Log
	db       repository.DBTX
	hub      *Hub
	interval time.Duration
	logger   *slog.Logger

	lastSequence int64
}

// NewTailer constructs a Tailer starting from the given sequence number
// (pass 0 to start at the beginning of the log: every stored event is
// broadcast, up to 100 per tick, before newer ones).
func NewTailer(events *eventlog.Log, db repository.DBTX, hub *Hub, interval time.Duration, logger *slog.Logger, fromSequence int64) *Tailer {
	return &Tailer{events: events, db: db, hub: hub, interval: interval, logger: logger, lastSequence: fromSequence}
}

// Run polls until ctx is cancelled.
func (t *Tailer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Tailer) tick(ctx context.Context) {
	events, err := t.events.ReadAfter(ctx, t.db, t.lastSequence, 100)
	if err != nil {
		t.logger.Error("tailer read failed", "error", err)
		return
	}
	for _, evt := range events {
		t.hub.Broadcast(evt)
		t.lastSequence = evt.SequenceNumber
	}
}
