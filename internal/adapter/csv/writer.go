package csv

import (
	"cmp"
	"context"
	stdcsv "encoding/csv"
	"io"
	"slices"
	"strconv"

	"github.com/iho/ledgerreplay/internal/domain"
)

var snapshotHeader = []string{"client", "available", "held", "total", "locked"}

// Writer renders account snapshots as CSV.
type Writer struct {
	w         io.Writer
	precision int32
	sorted    bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithPrecision sets the number of decimal places of every amount.
func WithPrecision(places int32) WriterOption {
	return func(w *Writer) {
		w.precision = places
	}
}

// WithSortedClients orders rows by client id.
func WithSortedClients(sorted bool) WriterOption {
	return func(w *Writer) {
		w.sorted = sorted
	}
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{
		w:         w,
		precision: domain.DefaultPrecision,
	}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// Write writes the header followed by one row per account. Total is derived
// from the rounded available and held amounts so the columns always add up.
func (w *Writer) Write(_ context.Context, snapshots []domain.AccountSnapshot) error {
	rows := snapshots
	if w.sorted {
		rows = slices.Clone(snapshots)
		slices.SortFunc(rows, func(a, b domain.AccountSnapshot) int {
			return cmp.Compare(a.Client, b.Client)
		})
	}

	cw := stdcsv.NewWriter(w.w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}

	for _, s := range rows {
		available := s.Available.Round(w.precision)
		held := s.Held.Round(w.precision)
		record := []string{
			strconv.FormatUint(uint64(s.Client), 10),
			domain.FormatAmount(available, w.precision),
			domain.FormatAmount(held, w.precision),
			domain.FormatAmount(available.Add(held), w.precision),
			strconv.FormatBool(s.Locked),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
