// Package store holds the transactional primitives shared by the ledger,
// payout, and event-log packages: running work inside a single Postgres
// transaction and classifying constraint-violation errors (row locks are
// taken by the repository methods, not here). Grounded on the Lock → Idempotency-check → Post shape of
// internal/ledger/ledger.go, generalized from a single PostLedgerEntry call
// into a reusable WithTransaction wrapper every higher package composes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX abstracts over *pgxpool.Pool and pgx.Tx so repositories can run either
// standalone or inside a caller-managed transaction. Grounded on
// internal/repository/interfaces.go's DBTX interface in the teacher repo.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Isolation selects the Postgres transaction isolation level.
type Isolation string

const (
	ReadCommitted  Isolation = Isolation(pgx.ReadCommitted)
	RepeatableRead Isolation = Isolation(pgx.RepeatableRead)
	Serializable   Isolation = Isolation(pgx.Serializable)
)

// WithTransaction runs fn inside a single Postgres transaction at the given
// isolation level, committing on success and rolling back on any error or
// panic. fn must perform all its work through the supplied pgx.Tx.
func WithTransaction(ctx context.Context, pool *pgxpool.Pool, isolation Isolation, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.TxIsoLevel(isolation)})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Postgres error codes this package classifies. See
// https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (23505) — the signal an idempotency-keyed insert races another
// writer and loses, meaning the caller should look up the existing row
// instead of failing the request.
func IsUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

// IsSerializationFailure reports whether err is a Postgres serialization
// failure (40001) or deadlock (40P01) — both signal the caller should retry
// the whole transaction from scratch.
func IsSerializationFailure(err error) bool {
	code := pgErrorCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
