package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the state-machine state of a Payout (spec.md §4.4).
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutCompleted  PayoutStatus = "COMPLETED"
	PayoutFailed     PayoutStatus = "FAILED"
	PayoutCancelled  PayoutStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutCompleted || s == PayoutFailed || s == PayoutCancelled
}

// Payout is the idempotency-keyed payout aggregate.
type Payout struct {
	ID                  uuid.UUID       `json:"id"`
	IdempotencyKey      string          `json:"idempotency_key"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	RecipientAccount    string          `json:"recipient_account"`
	RecipientName       string          `json:"recipient_name,omitempty"`
	Description         string          `json:"description,omitempty"`
	Status              PayoutStatus    `json:"status"`
	LedgerTransactionID *string         `json:"ledger_transaction_id,omitempty"`
	ExternalPayoutID    *string         `json:"external_payout_id,omitempty"`
	ExternalReference   *string         `json:"external_reference,omitempty"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	RetryCount          int             `json:"retry_count"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	ProcessedAt         *time.Time      `json:"processed_at,omitempty"`
	Metadata            json.RawMessage `json:"metadata"`
}

// LedgerTransactionIDFor is the deterministic transaction_id a payout posts
// its ledger entries under — re-derived on every retry so a crash between
// the ledger post and attaching it back to the payout collides harmlessly
// on the unique constraint instead of double-posting (spec.md §4.4 step 2).
func LedgerTransactionIDFor(idempotencyKey string) string {
	return "payout_" + idempotencyKey
}

// PayoutEventType enumerates the append-only per-payout audit trail.
type PayoutEventType string

const (
	PayoutEventCreated                 PayoutEventType = "CREATED"
	PayoutEventProcessingStarted       PayoutEventType = "PROCESSING_STARTED"
	PayoutEventLedgerEntryCreated      PayoutEventType = "LEDGER_ENTRY_CREATED"
	PayoutEventExternalPayoutInitiated PayoutEventType = "EXTERNAL_PAYOUT_INITIATED"
	PayoutEventExternalPayoutCompleted PayoutEventType = "EXTERNAL_PAYOUT_COMPLETED"
	PayoutEventExternalPayoutFailed    PayoutEventType = "EXTERNAL_PAYOUT_FAILED"
	PayoutEventCompleted               PayoutEventType = "COMPLETED"
	PayoutEventFailed                  PayoutEventType = "FAILED"
	PayoutEventRetry                   PayoutEventType = "RETRY"
)

// PayoutEvent is one row of the append-only per-payout audit trail.
type PayoutEvent struct {
	ID        uuid.UUID       `json:"id"`
	PayoutID  uuid.UUID       `json:"payout_id"`
	EventType PayoutEventType `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// AdmitParams is the input to PayoutEngine.Admit.
type AdmitParams struct {
	IdempotencyKey   string
	Amount           decimal.Decimal
	Currency         string
	RecipientAccount string
	RecipientName    string
	Description      string
	Metadata         json.RawMessage
}

// AdmitResult is the output of PayoutEngine.Admit.
type AdmitResult struct {
	Payout  *Payout
	Created bool // false if idempotency_key already existed
}

// JobStatus is the durable lifecycle state of a queued background job.
type JobStatus string

const (
	JobQueued JobStatus = "QUEUED"
	JobDone   JobStatus = "DONE"
	JobFailed JobStatus = "FAILED"
)

// PayoutJob is the durable row backing one (job_type, idempotency_key)
// background job. TaskRunner writes this row on every Enqueue and re-reads
// it before running a handler, so the authoritative attempt count and
// backoff schedule survive a process restart even though the Kafka message
// itself only round-trips a point-in-time snapshot of them.
type PayoutJob struct {
	ID             uuid.UUID  `json:"id"`
	JobType        string     `json:"job_type"`
	IdempotencyKey string     `json:"idempotency_key"`
	Attempt        int        `json:"attempt"`
	Status         JobStatus  `json:"status"`
	LastError      *string    `json:"last_error,omitempty"`
	NextEligibleAt time.Time  `json:"next_eligible_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
