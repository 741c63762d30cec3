package taskrunner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/payout"
	"github.com/muktar11/ledgersafe/internal/provider"
	"github.com/muktar11/ledgersafe/internal/store"
)

// Handlers bundles the dependencies the three payout job handlers need and
// exposes them ready to Register on a Runner.
type Handlers struct {
	pool     *pgxpool.Pool
	payouts  *payout.Engine
	provider provider.PayoutProvider
	runner   *Runner
	logger   *slog.Logger
}

// NewHandlers constructs the payout job handler set.
func NewHandlers(pool *pgxpool.Pool, payouts *payout.Engine, prov provider.PayoutProvider, runner *Runner, logger *slog.Logger) *Handlers {
	return &Handlers{pool: pool, payouts: payouts, provider: prov, runner: runner, logger: logger}
}

// RegisterAll wires every payout job type onto runner, plus the
// retry-exhaustion hook that marks a payout FAILED once its job type has
// used up every attempt its BackoffPolicy allows.
func (h *Handlers) RegisterAll() {
	h.runner.Register(JobProcessPayout, h.processPayout)
	h.runner.Register(JobInitiateExternalPayout, h.initiateExternalPayout)
	h.runner.Register(JobCompleteExternalPayout, h.completeExternalPayout)
	h.runner.OnExhausted(h.handleExhausted)
}

// handleExhausted marks the payout FAILED with the last handler error once
// the TaskRunner has given up retrying its job. Fail is idempotent on an
// already-FAILED payout, so this is safe even if an earlier step already
// failed it.
func (h *Handlers) handleExhausted(ctx context.Context, job Job, jobErr error) {
	err := store.WithTransaction(ctx, h.pool, store.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		_, err := h.payouts.Fail(ctx, tx, job.IdempotencyKey, jobErr.Error())
		return err
	})
	if err != nil {
		h.logger.Error("mark payout failed after exhausted retries", "idempotency_key", job.IdempotencyKey, "job_type", job.Type, "error", err)
	}
}

// processPayout transitions a payout to PROCESSING and posts its ledger
// transaction, then enqueues the external-payout step. Idempotent: every
// sub-step checks current state before acting (see internal/payout.Engine).
func (h *Handlers) processPayout(ctx context.Context, job Job) error {
	err := store.WithTransaction(ctx, h.pool, store.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := h.payouts.StartProcessing(ctx, tx, job.IdempotencyKey); err != nil {
			return fmt.Errorf("start processing: %w", err)
		}
		if _, err := h.payouts.AttachLedger(ctx, tx, job.IdempotencyKey); err != nil {
			return fmt.Errorf("attach ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return h.runner.Enqueue(ctx, JobInitiateExternalPayout, job.IdempotencyKey)
}

// initiateExternalPayout calls the external payout rail and records its
// returned external_payout_id, then enqueues the completion step.
func (h *Handlers) initiateExternalPayout(ctx context.Context, job Job) error {
	p, err := h.payouts.GetByIdempotencyKey(ctx, h.pool, job.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("load payout: %w", err)
	}
	if p == nil {
		return fmt.Errorf("payout %s not found", job.IdempotencyKey)
	}
	if p.ExternalPayoutID != nil {
		return h.runner.Enqueue(ctx, JobCompleteExternalPayout, job.IdempotencyKey)
	}

	result, err := h.provider.Initiate(ctx, providerRequest(p))
	if err != nil {
		if !provider.IsTerminal(err) {
			// Transient infrastructure failure (timeout, 429/5xx, open
			// circuit breaker): leave the payout PROCESSING and let the
			// TaskRunner's retry/backoff re-attempt initiation.
			return fmt.Errorf("initiate external payout: %w", err)
		}
		failErr := store.WithTransaction(ctx, h.pool, store.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
			_, ferr := h.payouts.Fail(ctx, tx, job.IdempotencyKey, err.Error())
			return ferr
		})
		if failErr != nil {
			return fmt.Errorf("initiate external payout: %w (and failed to mark FAILED: %v)", err, failErr)
		}
		return nil
	}

	err = store.WithTransaction(ctx, h.pool, store.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		_, err := h.payouts.AttachExternal(ctx, tx, job.IdempotencyKey, result.ExternalPayoutID)
		return err
	})
	if err != nil {
		return fmt.Errorf("attach external payout id: %w", err)
	}

	return h.runner.Enqueue(ctx, JobCompleteExternalPayout, job.IdempotencyKey)
}

// completeExternalPayout marks the payout COMPLETED.
func (h *Handlers) completeExternalPayout(ctx context.Context, job Job) error {
	err := store.WithTransaction(ctx, h.pool, store.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		_, err := h.payouts.Complete(ctx, tx, job.IdempotencyKey, "")
		return err
	})
	if err != nil {
		return fmt.Errorf("complete payout: %w", err)
	}
	return nil
}

func providerRequest(p *domain.Payout) provider.InitiateRequest {
	return provider.InitiateRequest{
		IdempotencyKey:   p.IdempotencyKey,
		Amount:           p.Amount.String(),
		Currency:         p.Currency,
		RecipientAccount: p.RecipientAccount,
		RecipientName:    p.RecipientName,
	}
}
