package store

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DecimalToNumeric converts a shopspring/decimal value to pgtype.Numeric for
// writing to the Postgres numeric(20,4) amount and balance columns. Those
// columns keep four decimal places; the schema does not limit a value to
// two. Grounded on the teacher's
// Int64ToNumeric, generalized from fixed int64-cents to an arbitrary-scale
// big.Int coefficient since amounts now carry their own exponent.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	coeff := d.Coefficient()
	return pgtype.Numeric{
		Int:              coeff,
		Exp:              d.Exponent(),
		NaN:              false,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

// NumericToDecimal converts a pgtype.Numeric read from a numeric(20,4) column
// back to a shopspring/decimal value. Grounded on the teacher's
// NumericToInt64, generalized to preserve the column's exponent instead of
// requiring it to be zero.
func NumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN {
		return decimal.Decimal{}, fmt.Errorf("numeric value is NaN")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
