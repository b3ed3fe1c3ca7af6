package domain

import (
	"github.com/shopspring/decimal"
)

// Account is the ledger state of a single client.
// Total is always derived from Available and Held.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount creates an empty, unlocked account.
func NewAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total returns available plus held funds.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// ValidateDeposit checks if account can be credited.
func (a *Account) ValidateDeposit() error {
	if a.Locked {
		return ErrAccountLocked
	}
	return nil
}

// ValidateWithdrawal checks if account can be debited by amount.
func (a *Account) ValidateWithdrawal(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateHold checks if amount can be moved from available to held.
func (a *Account) ValidateHold(amount decimal.Decimal) error {
	if a.Available.LessThan(amount) {
		return ErrInvariantViolation
	}
	return nil
}

// ValidateRelease checks if amount can be taken out of held funds.
func (a *Account) ValidateRelease(amount decimal.Decimal) error {
	if a.Held.LessThan(amount) {
		return ErrInvariantViolation
	}
	return nil
}

// Deposit credits available funds.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if err := a.ValidateDeposit(); err != nil {
		return err
	}
	a.Available = a.Available.Add(amount)
	return nil
}

// Withdraw debits available funds.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := a.ValidateWithdrawal(amount); err != nil {
		return err
	}
	a.Available = a.Available.Sub(amount)
	return nil
}

// Hold moves amount from available to held.
func (a *Account) Hold(amount decimal.Decimal) error {
	if err := a.ValidateHold(amount); err != nil {
		return err
	}
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	return nil
}

// Release moves amount from held back to available.
func (a *Account) Release(amount decimal.Decimal) error {
	if err := a.ValidateRelease(amount); err != nil {
		return err
	}
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	return nil
}

// Reverse removes held amount from the account and locks it.
func (a *Account) Reverse(amount decimal.Decimal) error {
	if err := a.ValidateRelease(amount); err != nil {
		return err
	}
	a.Held = a.Held.Sub(amount)
	a.Locked = true
	return nil
}

// CheckInvariants verifies that no balance is negative.
func (a *Account) CheckInvariants() error {
	if a.Available.IsNegative() || a.Held.IsNegative() {
		return ErrInvariantViolation
	}
	return nil
}

// AccountSnapshot is the reported state of an account.
type AccountSnapshot struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Snapshot returns the current reportable state.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}
