package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/muktar11/ledgersafe/internal/domain"
)

type accountRepo struct{}

// NewAccountRepository returns a pgx-backed AccountRepository.
func NewAccountRepository() AccountRepository {
	return &accountRepo{}
}

func (r *accountRepo) FindByCode(ctx context.Context, db DBTX, code string) (*domain.Account, error) {
	row := db.QueryRow(ctx, `
		SELECT id, account_code, name, account_type, created_at, updated_at
		FROM ledger_accounts WHERE account_code = $1`, code)
	return scanAccount(row)
}

func (r *accountRepo) LockByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.Account, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, account_code, name, account_type, created_at, updated_at
		FROM ledger_accounts WHERE account_code = $1 FOR UPDATE`, code)
	return scanAccount(row)
}

func (r *accountRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error) {
	row := db.QueryRow(ctx, `
		SELECT id, account_code, name, account_type, created_at, updated_at
		FROM ledger_accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *accountRepo) Create(ctx context.Context, db DBTX, account *domain.Account) error {
	row := db.QueryRow(ctx, `
		INSERT INTO ledger_accounts (account_code, name, account_type)
		VALUES ($1, $2, $3)
		RETURNING id, account_code, name, account_type, created_at, updated_at`,
		account.AccountCode, account.Name, string(account.AccountType))
	scanned, err := scanAccount(row)
	if err != nil {
		return err
	}
	*account = *scanned
	return nil
}

func (r *accountRepo) List(ctx context.Context, db DBTX) ([]domain.Account, error) {
	rows, err := db.Query(ctx, `
		SELECT id, account_code, name, account_type, created_at, updated_at
		FROM ledger_accounts ORDER BY account_code`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var accountType string
		if err := rows.Scan(&a.ID, &a.AccountCode, &a.Name, &accountType, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		a.AccountType = domain.AccountType(accountType)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var accountType string
	err := row.Scan(&a.ID, &a.AccountCode, &a.Name, &accountType, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.AccountType = domain.AccountType(accountType)
	return &a, nil
}
