package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPostTransactionParams_Sum(t *testing.T) {
	params := PostTransactionParams{
		Entries: [2]EntryInput{
			{AccountCode: "cash", Amount: decimal.NewFromInt(100), EntryType: EntryDebit},
			{AccountCode: "liability", Amount: decimal.NewFromInt(-100), EntryType: EntryCredit},
		},
	}
	assert.True(t, params.Sum().IsZero())
}

func TestPostTransactionParams_Sum_Unbalanced(t *testing.T) {
	params := PostTransactionParams{
		Entries: [2]EntryInput{
			{AccountCode: "cash", Amount: decimal.NewFromInt(100), EntryType: EntryDebit},
			{AccountCode: "liability", Amount: decimal.NewFromInt(-99), EntryType: EntryCredit},
		},
	}
	assert.False(t, params.Sum().IsZero())
}

func TestAccountType_IncreasesOnDebit(t *testing.T) {
	assert.True(t, AccountAsset.IncreasesOnDebit())
	assert.True(t, AccountExpense.IncreasesOnDebit())
	assert.False(t, AccountLiability.IncreasesOnDebit())
	assert.False(t, AccountEquity.IncreasesOnDebit())
	assert.False(t, AccountRevenue.IncreasesOnDebit())
}

func TestPayoutStatus_IsTerminal(t *testing.T) {
	assert.False(t, PayoutPending.IsTerminal())
	assert.False(t, PayoutProcessing.IsTerminal())
	assert.True(t, PayoutCompleted.IsTerminal())
	assert.True(t, PayoutFailed.IsTerminal())
	assert.True(t, PayoutCancelled.IsTerminal())
}

func TestLedgerTransactionIDFor_Deterministic(t *testing.T) {
	a := LedgerTransactionIDFor("idem-1")
	b := LedgerTransactionIDFor("idem-1")
	assert.Equal(t, a, b)
	assert.Equal(t, "payout_idem-1", a)
}
