// Package taskrunner implements the at-least-once background job queue that
// drives payout processing once a payout is admitted: queuing
// process_payout, initiate_external_payout, and complete_external_payout
// jobs over Kafka (internal/infra.KafkaProducer/KafkaConsumer), and retrying
// each with a job-specific backoff policy on failure. Grounded on
// original_source/payouts/tasks.py's Celery task retry shape
// (self.retry(exc=exc)) and internal/infra/kafka.go's producer/consumer
// wrapper, combined into a poll-consume-handle loop shaped like the
// teacher's cmd/outbox-consumer/main.go ticker.
package taskrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/infra"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// JobType names a queueable unit of work.
type JobType string

const (
	JobProcessPayout          JobType = "process_payout"
	JobInitiateExternalPayout JobType = "initiate_external_payout"
	JobCompleteExternalPayout JobType = "complete_external_payout"
)

// Job is the message envelope enqueued onto Kafka.
type Job struct {
	Type           JobType `json:"type"`
	IdempotencyKey string  `json:"idempotency_key"`
	Attempt        int     `json:"attempt"`
}

// BackoffPolicy configures per-job-type retry behavior.
type BackoffPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// DefaultPolicies mirrors original_source/payouts/tasks.py's per-task retry
// configuration: ledger posting (process_payout) waits longest between
// attempts, 3 attempts from a 60s base; the external call to the payout rail
// gets the most attempts, 5 from a 30s base; and marking completion, the
// last idempotent step, retries quickest, 3 attempts from a 10s base.
var DefaultPolicies = map[JobType]BackoffPolicy{
	JobProcessPayout:          {BaseDelay: 60 * time.Second, MaxAttempts: 3},
	JobInitiateExternalPayout: {BaseDelay: 30 * time.Second, MaxAttempts: 5},
	JobCompleteExternalPayout: {BaseDelay: 10 * time.Second, MaxAttempts: 3},
}

// Handler processes one job. Returning an error causes the runner to retry
// per the job type's BackoffPolicy, up to MaxAttempts.
type Handler func(ctx context.Context, job Job) error

// ExhaustedHandler is invoked once a job has failed MaxAttempts times and
// will not be retried again. It exists so a caller can record the terminal
// outcome somewhere durable (here, marking the payout FAILED) — the Runner
// itself knows nothing about payouts.
type ExhaustedHandler func(ctx context.Context, job Job, err error)

// Runner consumes jobs from Kafka and dispatches them to registered handlers.
// Kafka carries the at-least-once wake-up signal; payout_jobs (accessed
// through jobs/pool, both optional) carries the authoritative attempt count
// and next-eligible-at, so a restart between Enqueue and handle doesn't lose
// backoff state, and a duplicate or out-of-order delivery re-derives the real
// attempt number instead of trusting the message's possibly-stale copy.
type Runner struct {
	producer    *infra.KafkaProducer
	consumer    *infra.KafkaConsumer
	topic       string
	logger      *slog.Logger
	handlers    map[JobType]Handler
	policies    map[JobType]BackoffPolicy
	onExhausted ExhaustedHandler
	jobs        repository.JobRepository
	pool        *pgxpool.Pool
}

// NewRunner constructs a task runner over the given Kafka producer/consumer pair.
func NewRunner(producer *infra.KafkaProducer, consumer *infra.KafkaConsumer, topic string, logger *slog.Logger) *Runner {
	return &Runner{
		producer: producer,
		consumer: consumer,
		topic:    topic,
		logger:   logger,
		handlers: make(map[JobType]Handler),
		policies: DefaultPolicies,
	}
}

// Register associates a handler with a job type.
func (r *Runner) Register(jobType JobType, handler Handler) {
	r.handlers[jobType] = handler
}

// OnExhausted registers a callback fired when a job has used up every retry
// attempt its BackoffPolicy allows, right before the Runner gives up on it.
func (r *Runner) OnExhausted(fn ExhaustedHandler) {
	r.onExhausted = fn
}

// WithJobStore enables durable attempt tracking: Enqueue and every retry
// write their attempt count into payout_jobs via jobs/pool, and handle
// re-reads it before running a handler. Without this, the Runner still works
// (Kafka-only, as before) but loses in-flight attempt counts across a
// restart.
func (r *Runner) WithJobStore(jobs repository.JobRepository, pool *pgxpool.Pool) {
	r.jobs = jobs
	r.pool = pool
}

// Enqueue publishes a job for later processing. Safe to call from within the
// same database transaction that admitted a payout, since Kafka delivery is
// at-least-once and every handler below is written to be idempotent.
func (r *Runner) Enqueue(ctx context.Context, jobType JobType, idempotencyKey string) error {
	job := Job{Type: jobType, IdempotencyKey: idempotencyKey, Attempt: 1}
	if r.jobs != nil {
		if err := r.jobs.Upsert(ctx, r.pool, domain.PayoutJob{
			JobType:        string(jobType),
			IdempotencyKey: idempotencyKey,
			Attempt:        1,
			Status:         domain.JobQueued,
			NextEligibleAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("persist job row: %w", err)
		}
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := r.producer.Publish(ctx, r.topic, []byte(idempotencyKey), data); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Run blocks, consuming jobs until ctx is cancelled. Each job is dispatched
// to its registered handler; on failure it is republished with an
// incremented attempt count after the policy's backoff delay, up to
// MaxAttempts, after which its payout_jobs row (when a job store is
// configured) is marked FAILED and the OnExhausted callback, if any, is
// invoked.
func (r *Runner) Run(ctx context.Context) error {
	for {
		msg, err := r.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("read job message", "error", err)
			continue
		}
		r.handle(ctx, msg)
	}
}

func (r *Runner) handle(ctx context.Context, msg kafka.Message) {
	var job Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		r.logger.Error("decode job message", "error", err)
		return
	}

	handler, ok := r.handlers[job.Type]
	if !ok {
		r.logger.Warn("no handler registered for job type", "type", job.Type)
		return
	}

	r.reconcileAttempt(ctx, &job)

	err := handler(ctx, job)
	if err == nil {
		r.persistJobState(ctx, job, domain.JobDone, nil, time.Time{})
		return
	}

	policy := r.policies[job.Type]
	if job.Attempt >= policy.MaxAttempts {
		r.logger.Error("job exhausted retries", "type", job.Type, "idempotency_key", job.IdempotencyKey, "attempt", job.Attempt, "error", err)
		errMsg := err.Error()
		r.persistJobState(ctx, job, domain.JobFailed, &errMsg, time.Time{})
		if r.onExhausted != nil {
			r.onExhausted(ctx, job, err)
		}
		return
	}

	delay := backoffDelay(policy.BaseDelay, job.Attempt)
	r.logger.Warn("job failed, scheduling retry", "type", job.Type, "idempotency_key", job.IdempotencyKey, "attempt", job.Attempt, "delay", delay, "error", err)
	retryJob := Job{Type: job.Type, IdempotencyKey: job.IdempotencyKey, Attempt: job.Attempt + 1}
	errMsg := err.Error()
	r.persistJobState(ctx, retryJob, domain.JobQueued, &errMsg, time.Now().Add(delay))
	data, marshalErr := json.Marshal(retryJob)
	if marshalErr != nil {
		r.logger.Error("marshal retry job", "error", marshalErr)
		return
	}
	time.Sleep(delay)
	if pubErr := r.producer.Publish(ctx, r.topic, []byte(job.IdempotencyKey), data); pubErr != nil {
		r.logger.Error("publish retry job", "error", pubErr)
	}
}

// reconcileAttempt overwrites job.Attempt with the authoritative value from
// payout_jobs, when a job store is configured and has a row. This protects
// against a stale or duplicate Kafka delivery carrying an attempt count
// older than what a previous, since-crashed runner already persisted.
func (r *Runner) reconcileAttempt(ctx context.Context, job *Job) {
	if r.jobs == nil {
		return
	}
	row, err := r.jobs.Get(ctx, r.pool, string(job.Type), job.IdempotencyKey)
	if err != nil {
		r.logger.Error("read job row", "type", job.Type, "idempotency_key", job.IdempotencyKey, "error", err)
		return
	}
	if row != nil && row.Attempt > job.Attempt {
		job.Attempt = row.Attempt
	}
}

func (r *Runner) persistJobState(ctx context.Context, job Job, status domain.JobStatus, lastErr *string, nextEligibleAt time.Time) {
	if r.jobs == nil {
		return
	}
	if nextEligibleAt.IsZero() {
		nextEligibleAt = time.Now()
	}
	err := r.jobs.Upsert(ctx, r.pool, domain.PayoutJob{
		JobType:        string(job.Type),
		IdempotencyKey: job.IdempotencyKey,
		Attempt:        job.Attempt,
		Status:         status,
		LastError:      lastErr,
		NextEligibleAt: nextEligibleAt,
	})
	if err != nil {
		r.logger.Error("persist job row", "type", job.Type, "idempotency_key", job.IdempotencyKey, "error", err)
	}
}

// backoffDelay grows the policy's base delay exponentially with the attempt
// that just failed: attempt 1 waits one BaseDelay, attempt 2 waits two,
// attempt 3 waits four, and so on. Grounded on
// internal/provider/dome.go's domeGet retry loop (math.Pow(2, attempt+1)).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := math.Pow(2, float64(attempt-1))
	return time.Duration(factor * float64(base))
}
