package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a ledger Transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// EntryType classifies a LedgerEntry for reporting. Per spec.md §4.3 this is
// a label only — the zero-sum invariant is checked on the signed amount, not
// on this classification.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Transaction is the double-entry aggregate root: exactly two LedgerEntries,
// created atomically, immutable once COMPLETED.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	TransactionID string            `json:"transaction_id"`
	Description   string            `json:"description"`
	Status        TransactionStatus `json:"status"`
	Metadata      json.RawMessage   `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

// LedgerEntry is one signed, immutable posting against an Account.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	EntryType     EntryType       `json:"entry_type"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EntryInput is the caller-supplied shape of one side of a double-entry post.
type EntryInput struct {
	AccountCode string
	Amount      decimal.Decimal
	EntryType   EntryType
	Description string
}

// PostTransactionParams is the input to Ledger.Engine.PostTransaction.
type PostTransactionParams struct {
	TransactionID string
	Description   string
	Entries       [2]EntryInput
	Metadata      json.RawMessage
}

// Sum returns the signed sum of the two entries — must be zero for a valid post.
func (p PostTransactionParams) Sum() decimal.Decimal {
	return p.Entries[0].Amount.Add(p.Entries[1].Amount)
}
