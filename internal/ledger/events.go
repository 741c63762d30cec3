package ledger

import (
	"encoding/json"
	"time"

	"github.com/muktar11/ledgersafe/internal/domain"
)

// transactionEventPayload is the event_data shape recorded for
// LEDGER_TRANSACTION_CREATED events.
type transactionEventPayload struct {
	TransactionID string              `json:"transaction_id"`
	Description   string              `json:"description"`
	Entries       []entryEventPayload `json:"entries"`
	CreatedAt     time.Time           `json:"created_at"`
}

type entryEventPayload struct {
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	EntryType   string `json:"entry_type"`
	Description string `json:"description"`
}

func marshalTransactionEvent(txn *domain.Transaction, entries []domain.LedgerEntry) ([]byte, error) {
	payload := transactionEventPayload{
		TransactionID: txn.TransactionID,
		Description:   txn.Description,
		CreatedAt:     txn.CreatedAt,
	}
	for _, e := range entries {
		payload.Entries = append(payload.Entries, entryEventPayload{
			AccountID:   e.AccountID.String(),
			Amount:      e.Amount.String(),
			EntryType:   string(e.EntryType),
			Description: e.Description,
		})
	}
	return json.Marshal(payload)
}
