package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muktar11/ledgersafe/internal/domain"
)

func TestMarshalTransactionEvent_EncodesTransactionAndEntries(t *testing.T) {
	txnID := uuid.New()
	accountID := uuid.New()
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	txn := &domain.Transaction{
		ID:            txnID,
		TransactionID: "txn-abc",
		Description:   "payout settlement",
		CreatedAt:     createdAt,
	}
	entries := []domain.LedgerEntry{
		{
			AccountID:   accountID,
			Amount:      decimal.RequireFromString("-100.00"),
			EntryType:   domain.EntryCredit,
			Description: "cash out",
		},
	}

	data, err := marshalTransactionEvent(txn, entries)
	require.NoError(t, err)

	var decoded transactionEventPayload
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "txn-abc", decoded.TransactionID)
	assert.Equal(t, "payout settlement", decoded.Description)
	assert.True(t, createdAt.Equal(decoded.CreatedAt))
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, accountID.String(), decoded.Entries[0].AccountID)
	assert.Equal(t, "-100", decoded.Entries[0].Amount)
	assert.Equal(t, string(domain.EntryCredit), decoded.Entries[0].EntryType)
	assert.Equal(t, "cash out", decoded.Entries[0].Description)
}

func TestMarshalTransactionEvent_EmptyEntriesProducesEmptySlice(t *testing.T) {
	txn := &domain.Transaction{TransactionID: "txn-empty"}

	data, err := marshalTransactionEvent(txn, nil)
	require.NoError(t, err)

	var decoded transactionEventPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.Entries)
}
