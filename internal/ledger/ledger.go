// Package ledger implements the double-entry bookkeeping core: posting
// balanced Transactions, verifying the zero-sum invariant, and maintaining
// the per-account balance projection in the same database transaction as
// the post. Grounded on internal/ledger/ledger.go's Engine — the teacher's
// Lock → Idempotency-check → Post shape for a single wallet balance is kept
// verbatim in spirit and generalized to locking BOTH accounts of a
// double-entry pair before posting either leg.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/eventlog"
	"github.com/muktar11/ledgersafe/internal/repository"
	"github.com/muktar11/ledgersafe/internal/store"
)

// Engine provides the foundational ledger operations:
//  1. LockAccounts — row-level pessimistic locks, always acquired in a
//     deterministic order to avoid deadlocking against a concurrent post
//     touching the same two accounts in the opposite order.
//  2. FindExistingTransaction — idempotency check by transaction_id.
//  3. PostTransaction — atomic balance verification + append-only insert +
//     projection update + event-log append.
type Engine struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	projections  repository.ProjectionRepository
	events       *eventlog.Log
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	projections repository.ProjectionRepository,
	events *eventlog.Log,
) *Engine {
	return &Engine{
		accounts:     accounts,
		transactions: transactions,
		projections:  projections,
		events:       events,
	}
}

// LockAccounts acquires row-level locks on the two accounts referenced by
// params.Entries, in account-code lexical order, and returns them indexed to
// match params.Entries. Must be called within a transaction.
func (e *Engine) LockAccounts(ctx context.Context, tx pgx.Tx, params domain.PostTransactionParams) ([2]*domain.Account, error) {
	codes := [2]string{params.Entries[0].AccountCode, params.Entries[1].AccountCode}
	order := [2]int{0, 1}
	if codes[1] < codes[0] {
		order = [2]int{1, 0}
	}

	var locked [2]*domain.Account
	for _, i := range order {
		acct, err := e.accounts.LockByCodeForUpdate(ctx, tx, codes[i])
		if err != nil {
			return [2]*domain.Account{}, fmt.Errorf("lock account %s: %w", codes[i], err)
		}
		if acct == nil {
			return [2]*domain.Account{}, domain.ErrUnknownAccount(codes[i])
		}
		locked[i] = acct
	}
	return locked, nil
}

// FindExistingTransaction checks if a transaction with the given
// transaction_id already exists. Returns nil if no duplicate found.
func (e *Engine) FindExistingTransaction(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.Transaction, error) {
	existing, err := e.transactions.FindByTransactionID(ctx, tx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("find existing transaction: %w", err)
	}
	return existing, nil
}

// PostTransaction is the core write primitive: every ledger-affecting
// operation in the system goes through it. It re-verifies the zero-sum
// invariant server-side (never trusting a caller-computed sum), locks both
// referenced accounts, inserts the transaction and its two entries, updates
// each account's balance projection incrementally, and appends a
// LEDGER_TRANSACTION_CREATED event — all within the caller's transaction.
//
// Callers are responsible for checking FindExistingTransaction first;
// PostTransaction itself relies on the unique constraint on transaction_id
// as the final word, surfacing a collision as domain.ErrDuplicateTransactionID.
func (e *Engine) PostTransaction(ctx context.Context, tx pgx.Tx, params domain.PostTransactionParams) (*domain.Transaction, []domain.LedgerEntry, error) {
	if err := verifyEntryCount(params); err != nil {
		return nil, nil, err
	}
	sum := params.Sum()
	if !sum.IsZero() {
		return nil, nil, domain.ErrUnbalancedTransaction(sum.String())
	}

	accounts, err := e.LockAccounts(ctx, tx, params)
	if err != nil {
		return nil, nil, err
	}
	accountIDs := [2]uuid.UUID{accounts[0].ID, accounts[1].ID}

	txn, entries, err := e.transactions.Insert(ctx, tx, params, accountIDs)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, nil, domain.ErrDuplicateTransactionID(params.TransactionID)
		}
		return nil, nil, fmt.Errorf("insert transaction: %w", err)
	}

	eventData, err := marshalTransactionEvent(txn, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal transaction event: %w", err)
	}
	evt, err := e.events.Append(ctx, tx, domain.EventLedgerTransactionCreated, domain.AggregateTransaction, txn.ID.String(), "txn_created_"+txn.TransactionID, eventData, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("append transaction event: %w", err)
	}

	for i, entry := range entries {
		if err := e.applyProjection(ctx, tx, accounts[i], entry, evt.SequenceNumber); err != nil {
			return nil, nil, fmt.Errorf("apply projection for account %s: %w", accounts[i].AccountCode, err)
		}
	}

	if err := e.projections.UpsertTransactionSummary(ctx, tx, summarize(txn, entries)); err != nil {
		return nil, nil, fmt.Errorf("upsert transaction summary: %w", err)
	}

	return txn, entries, nil
}

// summarize folds a transaction's two entries into its denormalized listing
// row. The debit/credit split is derived from each entry's signed amount
// rather than its entry_type label: entry_type only tells the Projector
// which direction an account's *own* balance moves (spec §4.6), and two
// legs that both decrease their account (e.g. a cash-out funded by releasing
// a liability) are legitimately posted with the same entry_type on both
// sides. Since a balanced pair always nets to zero, one leg's amount is
// positive and the other negative; bucketing on that sign keeps
// total_debit == total_credit meaningful for every transaction instead of
// collapsing to zero whenever both legs share a label.
func summarize(txn *domain.Transaction, entries []domain.LedgerEntry) domain.LedgerTransactionSummary {
	s := domain.LedgerTransactionSummary{
		TransactionID:  txn.ID,
		TransactionKey: txn.TransactionID,
		Description:    txn.Description,
		Status:         txn.Status,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		CreatedAt:      txn.CreatedAt,
	}
	for _, entry := range entries {
		switch {
		case entry.Amount.IsPositive():
			s.TotalDebit = s.TotalDebit.Add(entry.Amount)
		case entry.Amount.IsNegative():
			s.TotalCredit = s.TotalCredit.Add(entry.Amount.Neg())
		}
	}
	return s
}

// applyProjection updates an account's incremental balance using the
// Projector's contribution rule (spec §4.6): ASSET/EXPENSE accounts
// increase on DEBIT, all other types increase on CREDIT. sequence is the
// event-log sequence number this post was appended at, stamped onto the
// balance row so UpsertAccountBalance's regression guard has something
// real to compare against.
func (e *Engine) applyProjection(ctx context.Context, tx pgx.Tx, account *domain.Account, entry domain.LedgerEntry, sequence int64) error {
	current, err := e.projections.GetAccountBalance(ctx, tx, account.ID)
	if err != nil {
		return fmt.Errorf("read current balance: %w", err)
	}
	var balance decimal.Decimal
	if current != nil {
		balance = current.Balance
	}

	contribution := contributionFor(account.AccountType, entry)
	updated := domain.AccountBalance{
		AccountID:         account.ID,
		Balance:           balance.Add(contribution),
		LastEventSequence: sequence,
	}
	return e.projections.UpsertAccountBalance(ctx, tx, updated)
}

// contributionFor computes the signed delta a single entry applies to an
// account's balance, per the Projector's fold rule: the entry's signed
// amount is added as-is when its entry_type label matches the account
// type's natural increasing direction, and negated otherwise.
func contributionFor(accountType domain.AccountType, entry domain.LedgerEntry) decimal.Decimal {
	matches := accountType.IncreasesOnDebit() == (entry.EntryType == domain.EntryDebit)
	if matches {
		return entry.Amount
	}
	return entry.Amount.Neg()
}

func verifyEntryCount(params domain.PostTransactionParams) error {
	if params.Entries[0].AccountCode == "" || params.Entries[1].AccountCode == "" {
		return domain.ErrValidation("both ledger entries require an account_code")
	}
	if params.Entries[0].AccountCode == params.Entries[1].AccountCode {
		return domain.ErrValidation("ledger entries must reference two distinct accounts")
	}
	return nil
}
