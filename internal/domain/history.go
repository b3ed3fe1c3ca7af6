package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TxStatus is the dispute lifecycle state of a deposit or withdrawal.
type TxStatus string

const (
	TxStatusNormal      TxStatus = "normal"
	TxStatusDisputed    TxStatus = "disputed"
	TxStatusResolved    TxStatus = "resolved"
	TxStatusChargedBack TxStatus = "charged_back"
)

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Normal -> Disputed -> {Resolved, ChargedBack}.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	switch s {
	case TxStatusNormal:
		return next == TxStatusDisputed
	case TxStatusDisputed:
		return next == TxStatusResolved || next == TxStatusChargedBack
	default:
		return false
	}
}

// ParseTxStatus parses a stored status value.
func ParseTxStatus(s string) (TxStatus, error) {
	status := TxStatus(s)
	switch status {
	case TxStatusNormal, TxStatusDisputed, TxStatusResolved, TxStatusChargedBack:
		return status, nil
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

// HistoryEntry is an accepted deposit or withdrawal kept for later disputes.
type HistoryEntry struct {
	TxID   TxID
	Client ClientID
	Kind   TxKind
	Amount decimal.Decimal
	Status TxStatus
}

// NewHistoryEntry records an accepted funds-moving transaction.
func NewHistoryEntry(tx Transaction) *HistoryEntry {
	return &HistoryEntry{
		TxID:   tx.TxID,
		Client: tx.Client,
		Kind:   tx.Kind,
		Amount: tx.Amount,
		Status: TxStatusNormal,
	}
}

// Transition moves the entry to next or returns ErrInvalidTransition.
func (h *HistoryEntry) Transition(next TxStatus) error {
	if !h.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.Status, next)
	}
	h.Status = next
	return nil
}

// CheckOwner validates that a lifecycle record from client may act on this entry.
func (h *HistoryEntry) CheckOwner(client ClientID) error {
	if h.Client != client {
		return ErrClientMismatch
	}
	return nil
}
