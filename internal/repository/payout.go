package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/store"
)

type payoutRepo struct{}

// NewPayoutRepository returns a pgx-backed PayoutRepository.
func NewPayoutRepository() PayoutRepository {
	return &payoutRepo{}
}

const payoutColumns = `id, idempotency_key, amount, currency, recipient_account, recipient_name,
	description, status, ledger_transaction_id, external_payout_id, external_reference,
	error_message, retry_count, created_at, updated_at, processed_at, metadata`

func (r *payoutRepo) FindByIdempotencyKey(ctx context.Context, db DBTX, key string) (*domain.Payout, error) {
	row := db.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE idempotency_key = $1`, key)
	return scanPayout(row)
}

func (r *payoutRepo) LockByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Payout, error) {
	row := tx.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE idempotency_key = $1 FOR UPDATE`, key)
	return scanPayout(row)
}

func (r *payoutRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Payout, error) {
	row := db.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id)
	return scanPayout(row)
}

func (r *payoutRepo) Create(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error {
	meta := payout.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO payouts (idempotency_key, amount, currency, recipient_account, recipient_name, description, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+payoutColumns,
		payout.IdempotencyKey, store.DecimalToNumeric(payout.Amount), payout.Currency,
		payout.RecipientAccount, payout.RecipientName, payout.Description, string(payout.Status), meta)
	scanned, err := scanPayout(row)
	if err != nil {
		return err
	}
	*payout = *scanned
	return nil
}

func (r *payoutRepo) Update(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error {
	row := tx.QueryRow(ctx, `
		UPDATE payouts SET
			status = $2, ledger_transaction_id = $3, external_payout_id = $4,
			external_reference = $5, error_message = $6, retry_count = $7,
			processed_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+payoutColumns,
		payout.ID, string(payout.Status), payout.LedgerTransactionID, payout.ExternalPayoutID,
		payout.ExternalReference, payout.ErrorMessage, payout.RetryCount, payout.ProcessedAt)
	scanned, err := scanPayout(row)
	if err != nil {
		return err
	}
	*payout = *scanned
	return nil
}

func (r *payoutRepo) AppendEvent(ctx context.Context, tx pgx.Tx, event domain.PayoutEvent) error {
	data := event.EventData
	if data == nil {
		data = json.RawMessage(`{}`)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO payout_events (payout_id, event_type, event_data)
		VALUES ($1, $2, $3)`, event.PayoutID, string(event.EventType), data)
	if err != nil {
		return fmt.Errorf("insert payout event: %w", err)
	}
	return nil
}

func (r *payoutRepo) ListEvents(ctx context.Context, db DBTX, payoutID uuid.UUID) ([]domain.PayoutEvent, error) {
	rows, err := db.Query(ctx, `
		SELECT id, payout_id, event_type, event_data, created_at
		FROM payout_events WHERE payout_id = $1 ORDER BY created_at ASC`, payoutID)
	if err != nil {
		return nil, fmt.Errorf("query payout events: %w", err)
	}
	defer rows.Close()

	var events []domain.PayoutEvent
	for rows.Next() {
		var e domain.PayoutEvent
		var eventType string
		if err := rows.Scan(&e.ID, &e.PayoutID, &eventType, &e.EventData, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payout event row: %w", err)
		}
		e.EventType = domain.PayoutEventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	var p domain.Payout
	var status string
	var amountNum pgtype.Numeric
	err := row.Scan(
		&p.ID, &p.IdempotencyKey, &amountNum, &p.Currency, &p.RecipientAccount, &p.RecipientName,
		&p.Description, &status, &p.LedgerTransactionID, &p.ExternalPayoutID, &p.ExternalReference,
		&p.ErrorMessage, &p.RetryCount, &p.CreatedAt, &p.UpdatedAt, &p.ProcessedAt, &p.Metadata,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout: %w", err)
	}
	p.Status = domain.PayoutStatus(status)
	p.Amount, err = store.NumericToDecimal(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert payout amount: %w", err)
	}
	return &p, nil
}
