package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountBalance is the rebuildable read model over an account's ledger
// entries (spec.md §4.6). Both the incremental updater and the from-scratch
// rebuild must converge on the same value for the same account.
type AccountBalance struct {
	AccountID         uuid.UUID       `json:"account_id"`
	Balance           decimal.Decimal `json:"balance"`
	LastUpdatedAt     time.Time       `json:"last_updated_at"`
	LastEventSequence int64           `json:"last_event_sequence"`
}

// PayoutSummary is the denormalized read model backing payout listing/search.
type PayoutSummary struct {
	PayoutID         uuid.UUID       `json:"payout_id"`
	IdempotencyKey   string          `json:"idempotency_key"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PayoutStatus    `json:"status"`
	RecipientAccount string          `json:"recipient_account"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// LedgerTransactionSummary is the denormalized read model for transaction
// listing: total debit and credit legs, rather than raw entries.
type LedgerTransactionSummary struct {
	TransactionID  uuid.UUID         `json:"transaction_id"`
	TransactionKey string            `json:"transaction_id_key"`
	Description    string            `json:"description"`
	Status         TransactionStatus `json:"status"`
	TotalDebit     decimal.Decimal   `json:"total_debit"`
	TotalCredit    decimal.Decimal   `json:"total_credit"`
	CreatedAt      time.Time         `json:"created_at"`
}
