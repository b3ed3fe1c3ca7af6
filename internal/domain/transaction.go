package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a transaction across the whole input stream.
type TxID uint32

// TxKind is the type of a transaction record.
type TxKind string

const (
	TxKindDeposit    TxKind = "deposit"
	TxKindWithdrawal TxKind = "withdrawal"
	TxKindDispute    TxKind = "dispute"
	TxKindResolve    TxKind = "resolve"
	TxKindChargeback TxKind = "chargeback"
)

// ParseTxKind parses a transaction type, ignoring case and surrounding whitespace.
func ParseTxKind(s string) (TxKind, error) {
	kind := TxKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case TxKindDeposit, TxKindWithdrawal, TxKindDispute, TxKindResolve, TxKindChargeback:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Transaction is one record of the input stream.
// Amount is only meaningful for deposits and withdrawals.
type Transaction struct {
	Kind   TxKind
	Client ClientID
	TxID   TxID
	Amount decimal.Decimal
}

// NewDeposit creates a validated deposit record.
func NewDeposit(client ClientID, id TxID, amount decimal.Decimal) (Transaction, error) {
	tx := Transaction{Kind: TxKindDeposit, Client: client, TxID: id, Amount: amount}
	return tx, tx.Validate()
}

// NewWithdrawal creates a validated withdrawal record.
func NewWithdrawal(client ClientID, id TxID, amount decimal.Decimal) (Transaction, error) {
	tx := Transaction{Kind: TxKindWithdrawal, Client: client, TxID: id, Amount: amount}
	return tx, tx.Validate()
}

func NewDispute(client ClientID, id TxID) Transaction {
	return Transaction{Kind: TxKindDispute, Client: client, TxID: id}
}

func NewResolve(client ClientID, id TxID) Transaction {
	return Transaction{Kind: TxKindResolve, Client: client, TxID: id}
}

func NewChargeback(client ClientID, id TxID) Transaction {
	return Transaction{Kind: TxKindChargeback, Client: client, TxID: id}
}

// MovesFunds reports whether the record defines a history entry.
func (t Transaction) MovesFunds() bool {
	return t.Kind == TxKindDeposit || t.Kind == TxKindWithdrawal
}

// Validate checks the structural rules of the record.
func (t Transaction) Validate() error {
	switch t.Kind {
	case TxKindDeposit, TxKindWithdrawal:
		if err := ValidateAmount(t.Amount); err != nil {
			return fmt.Errorf("%s %d: %w", t.Kind, t.TxID, err)
		}
		return nil
	case TxKindDispute, TxKindResolve, TxKindChargeback:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(t.Kind))
	}
}
