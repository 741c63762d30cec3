package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/muktar11/ledgersafe/internal/domain"
)

func TestContributionFor_AssetDebitIncreases(t *testing.T) {
	entry := domain.LedgerEntry{Amount: decimal.NewFromInt(100), EntryType: domain.EntryDebit}
	got := contributionFor(domain.AccountAsset, entry)
	assert.True(t, got.Equal(decimal.NewFromInt(100)))
}

func TestContributionFor_AssetCreditDecreases(t *testing.T) {
	entry := domain.LedgerEntry{Amount: decimal.NewFromInt(100), EntryType: domain.EntryCredit}
	got := contributionFor(domain.AccountAsset, entry)
	assert.True(t, got.Equal(decimal.NewFromInt(-100)))
}

func TestContributionFor_LiabilityCreditIncreases(t *testing.T) {
	entry := domain.LedgerEntry{Amount: decimal.NewFromInt(50), EntryType: domain.EntryCredit}
	got := contributionFor(domain.AccountLiability, entry)
	assert.True(t, got.Equal(decimal.NewFromInt(50)))
}

func TestContributionFor_LiabilityDebitDecreases(t *testing.T) {
	entry := domain.LedgerEntry{Amount: decimal.NewFromInt(50), EntryType: domain.EntryDebit}
	got := contributionFor(domain.AccountLiability, entry)
	assert.True(t, got.Equal(decimal.NewFromInt(-50)))
}

func TestContributionFor_SignedAmountRespected(t *testing.T) {
	// Amounts are signed on the entry itself — a negative DEBIT contributes
	// its actual (negative) value when it matches the account's increasing
	// direction, it doesn't get re-signed to positive.
	entry := domain.LedgerEntry{Amount: decimal.NewFromInt(-30), EntryType: domain.EntryDebit}
	got := contributionFor(domain.AccountAsset, entry)
	assert.True(t, got.Equal(decimal.NewFromInt(-30)))
}

func TestVerifyEntryCount_RejectsSameAccount(t *testing.T) {
	params := domain.PostTransactionParams{
		Entries: [2]domain.EntryInput{
			{AccountCode: "cash"},
			{AccountCode: "cash"},
		},
	}
	assert.Error(t, verifyEntryCount(params))
}

func TestVerifyEntryCount_RejectsMissingAccountCode(t *testing.T) {
	params := domain.PostTransactionParams{
		Entries: [2]domain.EntryInput{
			{AccountCode: ""},
			{AccountCode: "liability"},
		},
	}
	assert.Error(t, verifyEntryCount(params))
}

func TestVerifyEntryCount_AcceptsTwoDistinctAccounts(t *testing.T) {
	params := domain.PostTransactionParams{
		Entries: [2]domain.EntryInput{
			{AccountCode: "cash"},
			{AccountCode: "liability"},
		},
	}
	assert.NoError(t, verifyEntryCount(params))
}

func TestSummarize_FoldsEntriesBySign(t *testing.T) {
	txn := &domain.Transaction{
		ID:            uuid.New(),
		TransactionID: "txn_1",
		Description:   "payout settlement",
		Status:        domain.TransactionCompleted,
	}
	entries := []domain.LedgerEntry{
		{Amount: decimal.NewFromInt(100), EntryType: domain.EntryCredit},
		{Amount: decimal.NewFromInt(-100), EntryType: domain.EntryCredit},
	}

	summary := summarize(txn, entries)

	assert.Equal(t, txn.ID, summary.TransactionID)
	assert.Equal(t, "txn_1", summary.TransactionKey)
	assert.True(t, summary.TotalDebit.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.TotalCredit.Equal(decimal.NewFromInt(100)))
}

func TestSummarize_SameEntryTypeOnBothLegsStillSplits(t *testing.T) {
	// A payout disbursement posts both legs as EntryCredit (cash and the
	// offsetting liability both decrease), but the signed amounts still
	// net to zero, so the debit/credit split stays meaningful.
	txn := &domain.Transaction{ID: uuid.New(), TransactionID: "txn_2"}
	entries := []domain.LedgerEntry{
		{Amount: decimal.NewFromInt(250), EntryType: domain.EntryCredit},
		{Amount: decimal.NewFromInt(-250), EntryType: domain.EntryCredit},
	}

	summary := summarize(txn, entries)

	assert.True(t, summary.TotalDebit.Equal(decimal.NewFromInt(250)))
	assert.True(t, summary.TotalCredit.Equal(decimal.NewFromInt(250)))
}
