package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalToNumeric_RoundTrip(t *testing.T) {
	original := decimal.RequireFromString("123.45")

	numeric := DecimalToNumeric(original)
	back, err := NumericToDecimal(numeric)
	require.NoError(t, err)

	assert.True(t, original.Equal(back), "expected %s, got %s", original, back)
}

func TestDecimalToNumeric_NegativeRoundTrip(t *testing.T) {
	original := decimal.RequireFromString("-0.01")

	numeric := DecimalToNumeric(original)
	back, err := NumericToDecimal(numeric)
	require.NoError(t, err)

	assert.True(t, original.Equal(back))
}

func TestDecimalToNumeric_ZeroRoundTrip(t *testing.T) {
	original := decimal.Zero

	numeric := DecimalToNumeric(original)
	back, err := NumericToDecimal(numeric)
	require.NoError(t, err)

	assert.True(t, original.Equal(back))
}

func TestNumericToDecimal_RejectsNull(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{Valid: false})
	assert.Error(t, err)
}

func TestNumericToDecimal_RejectsNaN(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{Valid: true, NaN: true})
	assert.Error(t, err)
}
