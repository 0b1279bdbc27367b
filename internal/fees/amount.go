package fees

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount reports a missing, non-numeric or negative amount.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decoded JSON value (number or numeric string) into a
// money amount rounded to minor units. Negative values are rejected unless
// allowNegative is set, which signed adjustments need.
func ParseAmount(v interface{}, allowNegative bool) (decimal.Decimal, error) {
	var d decimal.Decimal
	var err error

	switch x := v.(type) {
	case nil:
		return decimal.Zero, ErrInvalidAmount
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(x, ",", "")))
	case decimal.Decimal:
		d = x
	default:
		return decimal.Zero, ErrInvalidAmount
	}
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() && !allowNegative {
		return decimal.Zero, ErrInvalidAmount
	}
	return Round(d), nil
}
