package usecase

import (
	"context"
	"iter"

	"github.com/iho/ledgerreplay/internal/domain"
)

// HistoryStore retains every accepted deposit and withdrawal of a run so that
// later disputes can recover the original amount.
type HistoryStore interface {
	// Get returns a copy of the entry or domain.ErrTransactionNotFound.
	Get(ctx context.Context, id domain.TxID) (*domain.HistoryEntry, error)
	// Insert adds a new entry or returns domain.ErrDuplicateTransaction.
	Insert(ctx context.Context, entry *domain.HistoryEntry) error
	UpdateStatus(ctx context.Context, id domain.TxID, status domain.TxStatus) error
	Len(ctx context.Context) (int, error)
	// Scan calls fn for every entry in unspecified order.
	Scan(ctx context.Context, fn func(*domain.HistoryEntry) error) error
}

// Purger is implemented by history stores that hold external state which
// must be released at the end of a run.
type Purger interface {
	Purge(ctx context.Context) error
}

// RecordSource yields transaction records in input order. Row-level failures
// are yielded as *domain.RowError; any other error ends the run.
type RecordSource interface {
	Records() iter.Seq2[domain.Transaction, error]
}

// SnapshotSink receives the final state of every account.
type SnapshotSink interface {
	Write(ctx context.Context, snapshots []domain.AccountSnapshot) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
