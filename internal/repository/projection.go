package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/store"
)

type projectionRepo struct{}

// NewProjectionRepository returns a pgx-backed ProjectionRepository over the
// account_balances, payout_summaries, and ledger_transaction_summaries
// read-model tables.
func NewProjectionRepository() ProjectionRepository {
	return &projectionRepo{}
}

// UpsertAccountBalance writes balance, guarded by last_event_sequence so a
// stale rebuild (or an incremental update racing a newer replay) can never
// regress an already-projected value — the WHERE clause makes the write a
// no-op when the stored sequence is already ahead.
func (r *projectionRepo) UpsertAccountBalance(ctx context.Context, db DBTX, balance domain.AccountBalance) error {
	_, err := db.Exec(ctx, `
		INSERT INTO account_balances (account_id, balance, last_event_sequence, last_updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id) DO UPDATE SET
			balance = EXCLUDED.balance,
			last_event_sequence = EXCLUDED.last_event_sequence,
			last_updated_at = now()
		WHERE account_balances.last_event_sequence <= EXCLUDED.last_event_sequence`,
		balance.AccountID, store.DecimalToNumeric(balance.Balance), balance.LastEventSequence)
	if err != nil {
		return fmt.Errorf("upsert account balance: %w", err)
	}
	return nil
}

func (r *projectionRepo) GetAccountBalance(ctx context.Context, db DBTX, accountID uuid.UUID) (*domain.AccountBalance, error) {
	var b domain.AccountBalance
	var balanceNum pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT account_id, balance, last_event_sequence, last_updated_at
		FROM account_balances WHERE account_id = $1`, accountID).
		Scan(&b.AccountID, &balanceNum, &b.LastEventSequence, &b.LastUpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get account balance: %w", err)
	}
	b.Balance, err = store.NumericToDecimal(balanceNum)
	if err != nil {
		return nil, fmt.Errorf("convert account balance: %w", err)
	}
	return &b, nil
}

func (r *projectionRepo) UpsertPayoutSummary(ctx context.Context, db DBTX, summary domain.PayoutSummary) error {
	_, err := db.Exec(ctx, `
		INSERT INTO payout_summaries (payout_id, idempotency_key, amount, currency, status, recipient_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payout_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		summary.PayoutID, summary.IdempotencyKey, store.DecimalToNumeric(summary.Amount), summary.Currency,
		string(summary.Status), summary.RecipientAccount, summary.CreatedAt, summary.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert payout summary: %w", err)
	}
	return nil
}

func (r *projectionRepo) ListPayoutSummaries(ctx context.Context, db DBTX, status *domain.PayoutStatus, limit int) ([]domain.PayoutSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = db.Query(ctx, `
			SELECT payout_id, idempotency_key, amount, currency, status, recipient_account, created_at, updated_at
			FROM payout_summaries WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, string(*status), limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT payout_id, idempotency_key, amount, currency, status, recipient_account, created_at, updated_at
			FROM payout_summaries ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query payout summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.PayoutSummary
	for rows.Next() {
		var s domain.PayoutSummary
		var st string
		var amountNum pgtype.Numeric
		if err := rows.Scan(&s.PayoutID, &s.IdempotencyKey, &amountNum, &s.Currency, &st, &s.RecipientAccount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payout summary row: %w", err)
		}
		s.Status = domain.PayoutStatus(st)
		s.Amount, err = store.NumericToDecimal(amountNum)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *projectionRepo) UpsertTransactionSummary(ctx context.Context, db DBTX, summary domain.LedgerTransactionSummary) error {
	_, err := db.Exec(ctx, `
		INSERT INTO ledger_transaction_summaries (transaction_id, transaction_id_key, description, status, total_debit, total_credit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transaction_id) DO NOTHING`,
		summary.TransactionID, summary.TransactionKey, summary.Description, string(summary.Status),
		store.DecimalToNumeric(summary.TotalDebit), store.DecimalToNumeric(summary.TotalCredit), summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert transaction summary: %w", err)
	}
	return nil
}
