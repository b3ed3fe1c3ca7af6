package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimal places used when rendering amounts.
const DefaultPrecision int32 = 4

// MaxAmountExponent bounds the decimal exponent of a parsed amount in both
// directions. Larger exponents make every later addition rescale to huge
// integers.
const MaxAmountExponent int32 = 28

// ParseAmount parses a decimal amount. Surrounding whitespace is ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMissingAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: cannot parse %q", ErrInvalidAmount, s)
	}
	if exp := amount.Exponent(); exp < -MaxAmountExponent || exp > MaxAmountExponent {
		return decimal.Zero, fmt.Errorf("%w: exponent of %q out of range", ErrInvalidAmount, s)
	}

	return amount, nil
}

// FormatAmount renders amount with a fixed number of decimal places.
func FormatAmount(amount decimal.Decimal, places int32) string {
	if places < 0 {
		places = DefaultPrecision
	}
	return amount.StringFixed(places)
}
