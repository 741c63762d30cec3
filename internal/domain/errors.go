package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrInsufficientBalance() *AppError {
	return &AppError{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance", Status: 400}
}

func ErrIdempotent(existingTxID string) *AppError {
	return &AppError{Code: "IDEMPOTENT", Message: fmt.Sprintf("transaction already exists: %s", existingTxID), Status: 200}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// ErrUnbalancedTransaction signals that a set of ledger entries does not sum to zero.
func ErrUnbalancedTransaction(sum string) *AppError {
	return &AppError{Code: "UNBALANCED_TRANSACTION", Message: fmt.Sprintf("entries do not sum to zero: %s", sum), Status: 422}
}

// ErrEntryCountViolation signals a transaction was posted with a count of entries other than 2.
func ErrEntryCountViolation(count int) *AppError {
	return &AppError{Code: "ENTRY_COUNT_VIOLATION", Message: fmt.Sprintf("double-entry transactions require exactly 2 entries, got %d", count), Status: 422}
}

// ErrUnknownAccount signals that a ledger entry references an account that does not exist.
func ErrUnknownAccount(accountCode string) *AppError {
	return &AppError{Code: "UNKNOWN_ACCOUNT", Message: fmt.Sprintf("unknown account: %s", accountCode), Status: 422}
}

// ErrDuplicateTransactionID signals a unique-constraint race on transaction_id.
func ErrDuplicateTransactionID(transactionID string) *AppError {
	return &AppError{Code: "DUPLICATE_TRANSACTION_ID", Message: fmt.Sprintf("transaction already posted: %s", transactionID), Status: 409}
}

// ErrInvariantViolation signals a bug: an invariant the core relies on has been broken.
func ErrInvariantViolation(msg string) *AppError {
	return &AppError{Code: "INVARIANT_VIOLATION", Message: msg, Status: 500}
}

// ErrRetryExhausted signals a payout job ran out of retry attempts.
func ErrRetryExhausted(lastErr string) *AppError {
	return &AppError{Code: "RETRY_EXHAUSTED", Message: fmt.Sprintf("max attempts reached: %s", lastErr), Status: 500}
}

// ErrImmutable signals an attempt to update or delete an append-only row.
func ErrImmutable(entity string) *AppError {
	return &AppError{Code: "IMMUTABLE", Message: fmt.Sprintf("%s rows are append-only and cannot be updated or deleted", entity), Status: 500}
}
