package testutil

import (
	"context"
	"iter"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerreplay/internal/domain"
)

// Amount parses a decimal literal or fails the test.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid amount %q: %v", s, err)
	}
	return d
}

// Deposit builds a valid deposit record.
func Deposit(t *testing.T, client domain.ClientID, id domain.TxID, amount string) domain.Transaction {
	t.Helper()

	tx, err := domain.NewDeposit(client, id, Amount(t, amount))
	if err != nil {
		t.Fatalf("invalid deposit: %v", err)
	}
	return tx
}

// Withdrawal builds a valid withdrawal record.
func Withdrawal(t *testing.T, client domain.ClientID, id domain.TxID, amount string) domain.Transaction {
	t.Helper()

	tx, err := domain.NewWithdrawal(client, id, Amount(t, amount))
	if err != nil {
		t.Fatalf("invalid withdrawal: %v", err)
	}
	return tx
}

// Item is one element yielded by a Source.
type Item struct {
	Tx  domain.Transaction
	Err error
}

// Ok wraps a valid record.
func Ok(tx domain.Transaction) Item {
	return Item{Tx: tx}
}

// RowFailure wraps a row-level parse failure at line.
func RowFailure(line int, err error) Item {
	return Item{Err: &domain.RowError{Line: line, Err: err}}
}

// Source is an in-memory record source.
type Source struct {
	items []Item
}

// NewSource creates a source yielding items in order.
func NewSource(items ...Item) *Source {
	return &Source{items: items}
}

// Of creates a source of valid records.
func Of(txs ...domain.Transaction) *Source {
	items := make([]Item, len(txs))
	for i, tx := range txs {
		items[i] = Ok(tx)
	}
	return NewSource(items...)
}

// Records implements usecase.RecordSource.
func (s *Source) Records() iter.Seq2[domain.Transaction, error] {
	return func(yield func(domain.Transaction, error) bool) {
		for _, item := range s.items {
			if !yield(item.Tx, item.Err) {
				return
			}
		}
	}
}

// Sink collects written snapshots.
type Sink struct {
	Snapshots []domain.AccountSnapshot
	Writes    int
	Err       error
}

// Write implements usecase.SnapshotSink.
func (s *Sink) Write(_ context.Context, snapshots []domain.AccountSnapshot) error {
	s.Writes++
	if s.Err != nil {
		return s.Err
	}
	s.Snapshots = append(s.Snapshots, snapshots...)
	return nil
}

// ByClient indexes the collected snapshots.
func (s *Sink) ByClient() map[domain.ClientID]domain.AccountSnapshot {
	m := make(map[domain.ClientID]domain.AccountSnapshot, len(s.Snapshots))
	for _, snap := range s.Snapshots {
		m[snap.Client] = snap
	}
	return m
}
