package memory

import (
	"context"

	"github.com/iho/ledgerreplay/internal/domain"
)

// HistoryStore implements usecase.HistoryStore in process memory.
// Entries are appended to an arena and indexed by transaction id; nothing
// is ever removed during a run.
type HistoryStore struct {
	entries []domain.HistoryEntry
	index   map[domain.TxID]int
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		index: make(map[domain.TxID]int),
	}
}

// Get returns a copy of the entry for id.
func (s *HistoryStore) Get(_ context.Context, id domain.TxID) (*domain.HistoryEntry, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	entry := s.entries[i]
	return &entry, nil
}

// Insert appends a new entry.
func (s *HistoryStore) Insert(_ context.Context, entry *domain.HistoryEntry) error {
	if _, ok := s.index[entry.TxID]; ok {
		return domain.ErrDuplicateTransaction
	}
	s.index[entry.TxID] = len(s.entries)
	s.entries = append(s.entries, *entry)
	return nil
}

// UpdateStatus sets the lifecycle status of an existing entry.
func (s *HistoryStore) UpdateStatus(_ context.Context, id domain.TxID, status domain.TxStatus) error {
	i, ok := s.index[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	s.entries[i].Status = status
	return nil
}

// Len returns the number of stored entries.
func (s *HistoryStore) Len(context.Context) (int, error) {
	return len(s.entries), nil
}

// Scan calls fn for every entry in insertion order.
func (s *HistoryStore) Scan(_ context.Context, fn func(*domain.HistoryEntry) error) error {
	for i := range s.entries {
		entry := s.entries[i]
		if err := fn(&entry); err != nil {
			return err
		}
	}
	return nil
}
