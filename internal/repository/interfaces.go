package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/store"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX = store.DBTX

// AccountRepository provides access to ledger_accounts.
type AccountRepository interface {
	// FindByCode returns an account by its unique code.
	FindByCode(ctx context.Context, db DBTX, code string) (*domain.Account, error)

	// LockByCodeForUpdate acquires a row-level lock (SELECT FOR UPDATE) and
	// returns the account. Must be called within a transaction.
	LockByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.Account, error)

	// Create inserts a new account.
	Create(ctx context.Context, db DBTX, account *domain.Account) error

	// FindByID returns an account by its surrogate id.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error)

	// List returns all accounts ordered by account_code.
	List(ctx context.Context, db DBTX) ([]domain.Account, error)
}

// TransactionRepository provides access to ledger_transactions and
// ledger_entries.
type TransactionRepository interface {
	// FindByTransactionID checks the idempotency index for a duplicate
	// transaction. Returns nil, nil if no duplicate found.
	FindByTransactionID(ctx context.Context, db DBTX, transactionID string) (*domain.Transaction, error)

	// Insert creates a transaction and its two ledger entries atomically.
	// Must be called within a transaction already holding locks on both
	// accounts referenced by entries.
	Insert(ctx context.Context, tx pgx.Tx, params domain.PostTransactionParams, accountIDs [2]uuid.UUID) (*domain.Transaction, []domain.LedgerEntry, error)

	// FindByID returns a transaction by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	// EntriesByAccount returns all ledger entries posted against an account,
	// ordered by created_at ascending — the input to AccountBalance rebuild.
	EntriesByAccount(ctx context.Context, db DBTX, accountID uuid.UUID) ([]domain.LedgerEntry, error)

	// EntriesByTransaction returns the (always exactly two) ledger entries
	// belonging to a transaction, ordered by created_at ascending.
	EntriesByTransaction(ctx context.Context, db DBTX, transactionID uuid.UUID) ([]domain.LedgerEntry, error)

	// ListByAccount returns transaction summaries touching an account, ordered
	// by created_at DESC, with cursor-based pagination.
	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerTransactionSummary, error)
}

// EventRepository provides access to the append-only events table.
type EventRepository interface {
	// FindByEventID returns an existing event by its caller-supplied event_id,
	// used for idempotent Append. Returns nil, nil if not found.
	FindByEventID(ctx context.Context, db DBTX, eventID string) (*domain.Event, error)

	// Append inserts a new event with the next sequence number, acquired by
	// locking the sequence anchor within the caller's transaction.
	Append(ctx context.Context, tx pgx.Tx, event domain.Event) (*domain.Event, error)

	// ReadAfter returns events with sequence_number > after, ordered
	// ascending, capped at limit.
	ReadAfter(ctx context.Context, db DBTX, after int64, limit int) ([]domain.Event, error)

	// NextSequence locks the sequence anchor row and returns the next value
	// to assign. Must be called within the same transaction as the insert.
	NextSequence(ctx context.Context, tx pgx.Tx) (int64, error)
}

// PayoutRepository provides access to payouts and payout_events.
type PayoutRepository interface {
	// FindByIdempotencyKey returns a payout by its idempotency key. Returns
	// nil, nil if not found.
	FindByIdempotencyKey(ctx context.Context, db DBTX, key string) (*domain.Payout, error)

	// LockByIdempotencyKeyForUpdate acquires a row-level lock and returns the
	// payout. Must be called within a transaction.
	LockByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Payout, error)

	// Create inserts a new PENDING payout.
	Create(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error

	// Update persists a payout's mutable fields (status, ledger/external
	// references, error message, retry count, processed_at).
	Update(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error

	// FindByID returns a payout by its surrogate id.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Payout, error)

	// AppendEvent inserts one row into the append-only per-payout audit
	// trail, within the caller's transaction.
	AppendEvent(ctx context.Context, tx pgx.Tx, event domain.PayoutEvent) error

	// ListEvents returns a payout's audit trail ordered by created_at ascending.
	ListEvents(ctx context.Context, db DBTX, payoutID uuid.UUID) ([]domain.PayoutEvent, error)
}

// JobRepository provides access to the payout_jobs durability table backing
// internal/taskrunner.Runner's retry state.
type JobRepository interface {
	// Upsert writes or updates the row for (job_type, idempotency_key),
	// keyed by that pair's unique constraint.
	Upsert(ctx context.Context, db DBTX, job domain.PayoutJob) error

	// Get returns the current row for (job_type, idempotency_key), or nil
	// if it has never been enqueued.
	Get(ctx context.Context, db DBTX, jobType, idempotencyKey string) (*domain.PayoutJob, error)
}

// ProjectionRepository provides access to the account_balances,
// payout_summaries, and ledger_transaction_summaries read-model tables.
type ProjectionRepository interface {
	// UpsertAccountBalance writes the incremental or rebuilt balance for an
	// account, guarded by last_event_sequence so an out-of-order or replayed
	// update never regresses a newer value.
	UpsertAccountBalance(ctx context.Context, db DBTX, balance domain.AccountBalance) error

	// GetAccountBalance returns the current projected balance for an account.
	GetAccountBalance(ctx context.Context, db DBTX, accountID uuid.UUID) (*domain.AccountBalance, error)

	// UpsertPayoutSummary writes the denormalized payout listing row.
	UpsertPayoutSummary(ctx context.Context, db DBTX, summary domain.PayoutSummary) error

	// ListPayoutSummaries returns payout summaries ordered by created_at DESC.
	ListPayoutSummaries(ctx context.Context, db DBTX, status *domain.PayoutStatus, limit int) ([]domain.PayoutSummary, error)

	// UpsertTransactionSummary writes the denormalized transaction listing row.
	UpsertTransactionSummary(ctx context.Context, db DBTX, summary domain.LedgerTransactionSummary) error
}
