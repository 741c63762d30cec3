package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.Error(t, ValidateCurrency("usd"))
	assert.Error(t, ValidateCurrency("US"))
	assert.Error(t, ValidateCurrency(""))
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(decimal.NewFromFloat(0.01)))
	assert.NoError(t, ValidatePositiveAmount(decimal.NewFromInt(100)))
	assert.Error(t, ValidatePositiveAmount(decimal.Zero))
	assert.Error(t, ValidatePositiveAmount(decimal.NewFromFloat(-5)))
	assert.Error(t, ValidatePositiveAmount(decimal.NewFromFloat(0.001)))
}

func TestValidateNonEmpty(t *testing.T) {
	assert.NoError(t, ValidateNonEmpty("recipient_account", "acct_123"))
	assert.Error(t, ValidateNonEmpty("recipient_account", ""))
}

func TestValidateIdempotencyKeyLength(t *testing.T) {
	assert.Error(t, ValidateIdempotencyKeyLength(""))
	assert.NoError(t, ValidateIdempotencyKeyLength("payout-1"))

	tooLong := make([]byte, 256)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	assert.Error(t, ValidateIdempotencyKeyLength(string(tooLong)))

	exact := make([]byte, 255)
	for i := range exact {
		exact[i] = 'a'
	}
	assert.NoError(t, ValidateIdempotencyKeyLength(string(exact)))
}
