// Package payout implements the idempotency-keyed payout state machine:
// Admit (PENDING) → StartProcessing (PROCESSING) → AttachLedger →
// AttachExternal → Complete/Fail, with Cancel available from PENDING.
// Grounded on original_source/payouts/services.py's PayoutService and
// payouts/models.py's Payout, re-expressed using the Lock →
// Idempotency-check → Post shape of internal/ledger/ledger.go: every
// transition acquires a row lock on the payout before checking its current
// status, so two concurrent calls (an HTTP retry racing a worker retry)
// serialize instead of double-processing.
package payout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/eventlog"
	"github.com/muktar11/ledgersafe/internal/ledger"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// CashAccountCode and LiabilityAccountCode name the two accounts a payout's
// ledger transaction posts against. Grounded on
// original_source/payouts/services.py's PayoutService.CASH_ACCOUNT_CODE /
// PAYOUT_LIABILITY_ACCOUNT_CODE.
const (
	CashAccountCode      = "CASH_001"
	LiabilityAccountCode = "PAYOUT_LIABILITY_001"
)

// Engine implements the payout state machine over Postgres.
type Engine struct {
	payouts     repository.PayoutRepository
	projections repository.ProjectionRepository
	ledger      *ledger.Engine
	events      *eventlog.Log
}

// NewEngine constructs a payout engine.
func NewEngine(payouts repository.PayoutRepository, projections repository.ProjectionRepository, ledgerEngine *ledger.Engine, events *eventlog.Log) *Engine {
	return &Engine{payouts: payouts, projections: projections, ledger: ledgerEngine, events: events}
}

// syncSummary writes the denormalized listing row backing GET /api/payouts
// search, kept current on every status transition.
func (e *Engine) syncSummary(ctx context.Context, tx pgx.Tx, p *domain.Payout) error {
	return e.projections.UpsertPayoutSummary(ctx, tx, domain.PayoutSummary{
		PayoutID:         p.ID,
		IdempotencyKey:   p.IdempotencyKey,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		RecipientAccount: p.RecipientAccount,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	})
}

// Admit creates a new PENDING payout for params.IdempotencyKey, or returns
// the existing one unchanged if the key was already admitted — the HTTP
// layer uses AdmitResult.Created to pick 201 vs 200 per the API contract.
func (e *Engine) Admit(ctx context.Context, tx pgx.Tx, params domain.AdmitParams) (*domain.AdmitResult, error) {
	if err := domain.ValidateIdempotencyKeyLength(params.IdempotencyKey); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(params.Currency); err != nil {
		return nil, err
	}
	if err := domain.ValidateNonEmpty("recipient_account", params.RecipientAccount); err != nil {
		return nil, err
	}

	existing, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, params.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for admit: %w", err)
	}
	if existing != nil {
		return &domain.AdmitResult{Payout: existing, Created: false}, nil
	}

	p := &domain.Payout{
		IdempotencyKey:   params.IdempotencyKey,
		Amount:           params.Amount,
		Currency:         params.Currency,
		RecipientAccount: params.RecipientAccount,
		RecipientName:    params.RecipientName,
		Description:      params.Description,
		Status:           domain.PayoutPending,
		Metadata:         domain.EnsureJSON(params.Metadata),
	}
	if err := e.payouts.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("create payout: %w", err)
	}
	if err := e.syncSummary(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("sync payout summary: %w", err)
	}

	createdData, _ := json.Marshal(map[string]string{
		"idempotency_key":   p.IdempotencyKey,
		"amount":            p.Amount.String(),
		"recipient_account": p.RecipientAccount,
	})
	if err := e.payouts.AppendEvent(ctx, tx, domain.PayoutEvent{PayoutID: p.ID, EventType: domain.PayoutEventCreated, EventData: createdData}); err != nil {
		return nil, fmt.Errorf("append created payout event: %w", err)
	}
	if _, err := e.events.Append(ctx, tx, domain.EventPayoutCreated, domain.AggregatePayout, p.ID.String(), "payout_created_"+p.IdempotencyKey, createdData, nil); err != nil {
		return nil, fmt.Errorf("append payout created event: %w", err)
	}

	return &domain.AdmitResult{Payout: p, Created: true}, nil
}

// StartProcessing transitions a payout from PENDING to PROCESSING. Per the
// intended short-circuit behavior (resolved Open Question, see DESIGN.md),
// calling this on a payout already PROCESSING or in a terminal state is a
// no-op that returns the payout as-is rather than an error — a retried
// worker task must be able to call this safely.
func (e *Engine) StartProcessing(ctx context.Context, tx pgx.Tx, idempotencyKey string) (*domain.Payout, error) {
	p, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for start-processing: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payout", idempotencyKey)
	}
	if p.Status != domain.PayoutPending {
		return p, nil
	}

	p.Status = domain.PayoutProcessing
	if err := e.payouts.Update(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("update payout to processing: %w", err)
	}
	if err := e.syncSummary(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("sync payout summary: %w", err)
	}

	if err := e.payouts.AppendEvent(ctx, tx, domain.PayoutEvent{PayoutID: p.ID, EventType: domain.PayoutEventProcessingStarted, EventData: json.RawMessage(`{}`)}); err != nil {
		return nil, fmt.Errorf("append processing-started event: %w", err)
	}
	data, _ := json.Marshal(map[string]string{"idempotency_key": p.IdempotencyKey, "amount": p.Amount.String()})
	if _, err := e.events.Append(ctx, tx, domain.EventPayoutProcessing, domain.AggregatePayout, p.ID.String(), "payout_processing_"+p.IdempotencyKey, data, nil); err != nil {
		return nil, fmt.Errorf("append payout processing event: %w", err)
	}

	return p, nil
}

// AttachLedger posts the payout's double-entry transaction — CASH_001
// credited, PAYOUT_LIABILITY_001 credited with the opposite sign, so both
// balances move by -amount (see DESIGN.md for the entry-sign derivation) —
// and attaches the resulting transaction_id to the payout. Safe to call
// again after a crash: the transaction_id is derived from the idempotency
// key, and a retry that finds it already posted (FindExistingTransaction)
// re-attaches the same id instead of posting again.
func (e *Engine) AttachLedger(ctx context.Context, tx pgx.Tx, idempotencyKey string) (*domain.Payout, error) {
	p, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for attach-ledger: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payout", idempotencyKey)
	}
	if p.LedgerTransactionID != nil {
		return p, nil
	}
	if p.Status != domain.PayoutProcessing {
		return nil, domain.ErrInvariantViolation(fmt.Sprintf("cannot attach ledger to payout in status %s", p.Status))
	}

	// Both legs carry EntryCredit: CASH (an asset) and PAYOUT_LIABILITY (a
	// liability) sit on opposite sides of contributionFor's match rule, so a
	// disbursement that decreases both can only be expressed with matching
	// entry_type labels on both entries -- splitting them into one DEBIT and
	// one CREDIT would flip one leg's balance direction. The signed amounts
	// still net to zero (ledger.Engine.PostTransaction's invariant), and
	// ledger.summarize derives its debit/credit report split from that sign,
	// not from this label.
	transactionID := domain.LedgerTransactionIDFor(p.IdempotencyKey)
	params := domain.PostTransactionParams{
		TransactionID: transactionID,
		Description:   fmt.Sprintf("payout %s to %s", p.IdempotencyKey, p.RecipientAccount),
		Entries: [2]domain.EntryInput{
			{AccountCode: CashAccountCode, Amount: p.Amount, EntryType: domain.EntryCredit, Description: "payout disbursement"},
			{AccountCode: LiabilityAccountCode, Amount: p.Amount.Neg(), EntryType: domain.EntryCredit, Description: "payout liability release"},
		},
	}

	if existing, err := e.ledger.FindExistingTransaction(ctx, tx, transactionID); err != nil {
		return nil, fmt.Errorf("check existing ledger transaction: %w", err)
	} else if existing == nil {
		if _, _, err := e.ledger.PostTransaction(ctx, tx, params); err != nil {
			return nil, fmt.Errorf("post payout ledger transaction: %w", err)
		}
	}

	p.LedgerTransactionID = &transactionID
	if err := e.payouts.Update(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("attach ledger transaction id: %w", err)
	}

	if err := e.payouts.AppendEvent(ctx, tx, domain.PayoutEvent{PayoutID: p.ID, EventType: domain.PayoutEventLedgerEntryCreated, EventData: json.RawMessage(`{}`)}); err != nil {
		return nil, fmt.Errorf("append ledger-entry-created event: %w", err)
	}

	return p, nil
}

// AttachExternal records that an external payout call was initiated, storing
// the provider-assigned id for later idempotent lookup.
func (e *Engine) AttachExternal(ctx context.Context, tx pgx.Tx, idempotencyKey, externalPayoutID string) (*domain.Payout, error) {
	p, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for attach-external: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payout", idempotencyKey)
	}
	if p.ExternalPayoutID != nil {
		return p, nil
	}

	p.ExternalPayoutID = &externalPayoutID
	if err := e.payouts.Update(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("attach external payout id: %w", err)
	}
	if err := e.payouts.AppendEvent(ctx, tx, domain.PayoutEvent{PayoutID: p.ID, EventType: domain.PayoutEventExternalPayoutInitiated, EventData: json.RawMessage(`{}`)}); err != nil {
		return nil, fmt.Errorf("append external-initiated event: %w", err)
	}
	return p, nil
}

// Complete transitions a payout to COMPLETED. Idempotent: calling it again
// on an already-COMPLETED payout is a no-op.
func (e *Engine) Complete(ctx context.Context, tx pgx.Tx, idempotencyKey string, externalReference string) (*domain.Payout, error) {
	p, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for complete: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payout", idempotencyKey)
	}
	if p.Status == domain.PayoutCompleted {
		return p, nil
	}
	if p.Status.IsTerminal() {
		return nil, domain.ErrInvariantViolation(fmt.Sprintf("cannot complete payout in terminal status %s", p.Status))
	}

	p.Status = domain.PayoutCompleted
	if externalReference != "" {
		p.ExternalReference = &externalReference
	}
	if err := e.payouts.Update(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("update payout to completed: %w", err)
	}
	if err := e.syncSummary(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("sync payout summary: %w", err)
	}

	if err := e.payouts.AppendEvent(ctx, tx, domain.PayoutEvent{PayoutID: p.ID, EventType: domain.PayoutEventCompleted, EventData: json.RawMessage(`{}`)}); err != nil {
		return nil, fmt.Errorf("append completed event: %w", err)
	}
	data, _ := json.Marshal(map[string]string{"idempotency_key": p.IdempotencyKey})
	if _, err := e.events.Append(ctx, tx, domain.EventPayoutCompleted, domain.AggregatePayout, p.ID.String(), "payout_completed_"+p.IdempotencyKey, data, nil); err != nil {
		return nil, fmt.Errorf("append payout completed event: %w", err)
	}

	return p, nil
}

// Fail transitions a payout to FAILED, incrementing retry_count and
// recording errMsg. Terminal — once FAILED, a payout never auto-transitions
// again; a new payout with a new idempotency key is required to retry the
// underlying business operation.
func (e *Engine) Fail(ctx context.Context, tx pgx.Tx, idempotencyKey, errMsg string) (*domain.Payout, error) {
	p, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for fail: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payout", idempotencyKey)
	}
	if p.Status == domain.PayoutFailed {
		return p, nil
	}

	p.Status = domain.PayoutFailed
	p.ErrorMessage = &errMsg
	p.RetryCount++
	if err := e.payouts.Update(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("update payout to failed: %w", err)
	}
	if err := e.syncSummary(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("sync payout summary: %w", err)
	}

	data, _ := json.Marshal(map[string]string{"error": errMsg})
	if err := e.payouts.AppendEvent(ctx, tx, domain.PayoutEvent{PayoutID: p.ID, EventType: domain.PayoutEventFailed, EventData: data}); err != nil {
		return nil, fmt.Errorf("append failed event: %w", err)
	}
	if _, err := e.events.Append(ctx, tx, domain.EventPayoutFailed, domain.AggregatePayout, p.ID.String(), "payout_failed_"+p.IdempotencyKey, data, nil); err != nil {
		return nil, fmt.Errorf("append payout failed event: %w", err)
	}

	return p, nil
}

// Cancel transitions a PENDING payout to CANCELLED. Any other status
// returns ErrInvariantViolation — once processing has started, a payout
// must run to COMPLETED or FAILED, never CANCELLED.
func (e *Engine) Cancel(ctx context.Context, tx pgx.Tx, idempotencyKey string) (*domain.Payout, error) {
	p, err := e.payouts.LockByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lock payout for cancel: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payout", idempotencyKey)
	}
	if p.Status == domain.PayoutCancelled {
		return p, nil
	}
	if p.Status != domain.PayoutPending {
		return nil, domain.ErrInvariantViolation(fmt.Sprintf("cannot cancel payout in status %s", p.Status))
	}

	p.Status = domain.PayoutCancelled
	if err := e.payouts.Update(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("update payout to cancelled: %w", err)
	}
	if err := e.syncSummary(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("sync payout summary: %w", err)
	}
	return p, nil
}

// Get returns a payout by its surrogate id.
func (e *Engine) Get(ctx context.Context, db repository.DBTX, id uuid.UUID) (*domain.Payout, error) {
	p, err := e.payouts.FindByID(ctx, db, id)
	if err != nil {
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return p, nil
}

// Events returns a payout's audit trail in chronological order.
func (e *Engine) Events(ctx context.Context, db repository.DBTX, payoutID uuid.UUID) ([]domain.PayoutEvent, error) {
	events, err := e.payouts.ListEvents(ctx, db, payoutID)
	if err != nil {
		return nil, fmt.Errorf("list payout events: %w", err)
	}
	return events, nil
}

// GetByIdempotencyKey returns a payout by its idempotency key.
func (e *Engine) GetByIdempotencyKey(ctx context.Context, db repository.DBTX, key string) (*domain.Payout, error) {
	p, err := e.payouts.FindByIdempotencyKey(ctx, db, key)
	if err != nil {
		return nil, fmt.Errorf("get payout by idempotency key: %w", err)
	}
	return p, nil
}
