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

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

func (r *transactionRepo) FindByTransactionID(ctx context.Context, db DBTX, transactionID string) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT id, transaction_id, description, status, metadata, created_at
		FROM ledger_transactions WHERE transaction_id = $1`, transactionID)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT id, transaction_id, description, status, metadata, created_at
		FROM ledger_transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// Insert creates a transaction row and its two ledger entries atomically.
// Caller must already hold row locks on both accounts referenced by entries.
func (r *transactionRepo) Insert(ctx context.Context, tx pgx.Tx, params domain.PostTransactionParams, accountIDs [2]uuid.UUID) (*domain.Transaction, []domain.LedgerEntry, error) {
	meta := params.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO ledger_transactions (transaction_id, description, status, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, transaction_id, description, status, metadata, created_at`,
		params.TransactionID, params.Description, string(domain.TransactionCompleted), meta)

	txn, err := scanTransaction(row)
	if err != nil {
		return nil, nil, err
	}
	if txn == nil {
		return nil, nil, fmt.Errorf("insert transaction: no row returned")
	}

	entries := make([]domain.LedgerEntry, 2)
	for i, input := range params.Entries {
		entryRow := tx.QueryRow(ctx, `
			INSERT INTO ledger_entries (transaction_id, account_id, amount, entry_type, description)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, transaction_id, account_id, amount, entry_type, description, created_at`,
			txn.ID, accountIDs[i], store.DecimalToNumeric(input.Amount), string(input.EntryType), input.Description)

		entry, err := scanLedgerEntry(entryRow)
		if err != nil {
			return nil, nil, fmt.Errorf("insert ledger entry: %w", err)
		}
		entries[i] = *entry
	}

	return txn, entries, nil
}

func (r *transactionRepo) EntriesByAccount(ctx context.Context, db DBTX, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, transaction_id, account_id, amount, entry_type, description, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY created_at ASC, id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query entries by account: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *transactionRepo) EntriesByTransaction(ctx context.Context, db DBTX, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, transaction_id, account_id, amount, entry_type, description, created_at
		FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at ASC, id ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("query entries by transaction: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *transactionRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerTransactionSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.Query(ctx, `
			SELECT t.id, t.transaction_id, t.description, t.status,
			       COALESCE(SUM(e.amount) FILTER (WHERE e.amount > 0), 0),
			       COALESCE(-SUM(e.amount) FILTER (WHERE e.amount < 0), 0),
			       t.created_at
			FROM ledger_transactions t
			JOIN ledger_entries e ON e.transaction_id = t.id
			WHERE t.id IN (SELECT transaction_id FROM ledger_entries WHERE account_id = $1)
			  AND (t.created_at, t.id) <= (SELECT created_at, id FROM ledger_transactions WHERE id = $2)
			GROUP BY t.id
			ORDER BY t.created_at DESC, t.id DESC
			LIMIT $3`, accountID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT t.id, t.transaction_id, t.description, t.status,
			       COALESCE(SUM(e.amount) FILTER (WHERE e.amount > 0), 0),
			       COALESCE(-SUM(e.amount) FILTER (WHERE e.amount < 0), 0),
			       t.created_at
			FROM ledger_transactions t
			JOIN ledger_entries e ON e.transaction_id = t.id
			WHERE t.id IN (SELECT transaction_id FROM ledger_entries WHERE account_id = $1)
			GROUP BY t.id
			ORDER BY t.created_at DESC, t.id DESC
			LIMIT $2`, accountID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.LedgerTransactionSummary
	for rows.Next() {
		var s domain.LedgerTransactionSummary
		var status string
		var debitNum, creditNum pgtype.Numeric
		if err := rows.Scan(&s.TransactionID, &s.TransactionKey, &s.Description, &status, &debitNum, &creditNum, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction summary: %w", err)
		}
		s.Status = domain.TransactionStatus(status)
		s.TotalDebit, err = store.NumericToDecimal(debitNum)
		if err != nil {
			return nil, err
		}
		s.TotalCredit, err = store.NumericToDecimal(creditNum)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var status string
	err := row.Scan(&txn.ID, &txn.TransactionID, &txn.Description, &status, &txn.Metadata, &txn.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	txn.Status = domain.TransactionStatus(status)
	return &txn, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var entryType string
	var amountNum pgtype.Numeric
	err := row.Scan(&e.ID, &e.TransactionID, &e.AccountID, &amountNum, &entryType, &e.Description, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	e.EntryType = domain.EntryType(entryType)
	e.Amount, err = store.NumericToDecimal(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert entry amount: %w", err)
	}
	return &e, nil
}

func scanLedgerEntryRow(rows pgx.Rows) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var entryType string
	var amountNum pgtype.Numeric
	err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &amountNum, &entryType, &e.Description, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry row: %w", err)
	}
	e.EntryType = domain.EntryType(entryType)
	e.Amount, err = store.NumericToDecimal(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert entry amount: %w", err)
	}
	return &e, nil
}
