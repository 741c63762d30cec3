package domain

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks if a currency code is ISO 4217 shaped.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return ErrValidation("invalid currency code: " + currency)
	}
	return nil
}

// ValidatePositiveAmount checks that amount is strictly positive with at most
// two decimal places, per spec.md's boundary behaviors (0.01 accepted, 0 and
// sub-cent fractions rejected).
func ValidatePositiveAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrValidation("amount must be strictly positive, got " + amount.String())
	}
	if amount.Exponent() < -2 {
		return ErrValidation("amount must have at most 2 decimal places, got " + amount.String())
	}
	return nil
}

// ValidateNonEmpty checks that a required string field was supplied.
func ValidateNonEmpty(field, value string) error {
	if value == "" {
		return ErrValidation(field + " is required")
	}
	return nil
}

// ValidateIdempotencyKeyLength enforces the 255-character ceiling from spec.md §8.
func ValidateIdempotencyKeyLength(key string) error {
	if len(key) == 0 {
		return ErrValidation("idempotency_key is required")
	}
	if len(key) > 255 {
		return ErrValidation("idempotency_key exceeds 255 characters")
	}
	return nil
}
