package database

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a pgtype.Numeric into a decimal.Decimal. A NULL
// or unparsable value is an error, never a silent zero: money columns that
// fail to decode must surface as load failures.
func NumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, fmt.Errorf("numeric is null")
	}
	val, err := n.Value()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("numeric value: %w", err)
	}
	s, ok := val.(string)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("numeric value is %T, not string", val)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

// DecimalToNumeric converts a decimal.Decimal into a pgtype.Numeric, fixed
// to two fractional digits.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
