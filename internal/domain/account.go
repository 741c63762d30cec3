package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies an Account for balance-derivation purposes (§4.6).
type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountEquity    AccountType = "EQUITY"
	AccountRevenue   AccountType = "REVENUE"
	AccountExpense   AccountType = "EXPENSE"
)

// IncreasesOnDebit reports whether a DEBIT ledger entry increases this
// account type's balance (true for ASSET/EXPENSE, false otherwise), per the
// Projector's contribution rule in spec.md §4.6.
func (t AccountType) IncreasesOnDebit() bool {
	return t == AccountAsset || t == AccountExpense
}

// Account is an administratively-created ledger account. Never deleted while
// any LedgerEntry references it, and immutable in type after creation.
type Account struct {
	ID          uuid.UUID   `json:"id"`
	AccountCode string      `json:"account_code"`
	Name        string      `json:"name"`
	AccountType AccountType `json:"account_type"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
