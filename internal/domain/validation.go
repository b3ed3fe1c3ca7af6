package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateAmount validates a deposit/withdrawal amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// ParseClientID parses a client identifier.
func ParseClientID(s string) (ClientID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid client id %q", ErrMalformedRow, s)
	}
	return ClientID(v), nil
}

// ParseTxID parses a transaction identifier.
func ParseTxID(s string) (TxID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid transaction id %q", ErrMalformedRow, s)
	}
	return TxID(v), nil
}
