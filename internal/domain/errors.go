package domain

import (
	"errors"
	"fmt"
)

var (
	// Row errors
	ErrMalformedRow  = errors.New("malformed row")
	ErrUnknownKind   = errors.New("unknown transaction type")
	ErrMissingAmount = errors.New("amount is required")
	ErrInvalidAmount = errors.New("amount must be positive")

	// Funds-moving errors
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrAccountLocked        = errors.New("account is locked")

	// Dispute lifecycle errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrClientMismatch      = errors.New("transaction belongs to another client")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")

	// ErrInvariantViolation means applying the record would leave available or
	// held funds negative.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// RowError is a structural failure of one input row. The row never becomes a
// Transaction.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// RejectionError is returned when a well-formed record is refused or ignored
// by the ledger. Ledger state is unchanged.
type RejectionError struct {
	Kind   TxKind
	Client ClientID
	TxID   TxID
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s tx %d for client %d rejected: %v", e.Kind, e.TxID, e.Client, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Reason returns a stable label for the rejection cause.
func (e *RejectionError) Reason() string {
	return ReasonOf(e.Err)
}

// Reject wraps err as a RejectionError for tx.
func Reject(tx Transaction, err error) *RejectionError {
	return &RejectionError{Kind: tx.Kind, Client: tx.Client, TxID: tx.TxID, Err: err}
}

var reasons = []struct {
	err    error
	reason string
}{
	{ErrDuplicateTransaction, "duplicate_transaction"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrAccountLocked, "account_locked"},
	{ErrTransactionNotFound, "transaction_not_found"},
	{ErrClientMismatch, "client_mismatch"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInvariantViolation, "invariant_violation"},
	{ErrUnknownKind, "unknown_kind"},
	{ErrMissingAmount, "missing_amount"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrMalformedRow, "malformed_row"},
}

// ReasonOf maps err to the label of the first known sentinel it wraps.
func ReasonOf(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}

// IsRecoverable reports whether err is a row-level or business-rule failure
// that should be logged and skipped rather than abort the run.
func IsRecoverable(err error) bool {
	var rowErr *RowError
	var rejErr *RejectionError
	return errors.As(err, &rowErr) || errors.As(err, &rejErr)
}
