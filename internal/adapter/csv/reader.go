package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/iho/ledgerreplay/internal/domain"
)

// ErrInvalidHeader is reported when the input lacks a required column.
// Every row under such a header is malformed.
var ErrInvalidHeader = fmt.Errorf("%w: invalid csv header", domain.ErrMalformedRow)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

type columns struct {
	kind, client, tx, amount int
}

// Reader parses transaction records from CSV with the header
// "type, client, tx, amount". Whitespace around fields is ignored and the
// amount column may be left out of dispute, resolve and chargeback rows.
type Reader struct {
	r io.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Records returns a single-use sequence of records in input order. Rows
// that cannot be parsed yield a *domain.RowError and reading continues. A
// header without the type, client and tx columns yields a RowError for the
// header and for every following row. An I/O failure yields a plain error and
// ends the sequence.
func (r *Reader) Records() iter.Seq2[domain.Transaction, error] {
	return func(yield func(domain.Transaction, error) bool) {
		cr := stdcsv.NewReader(r.r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		cr.ReuseRecord = true

		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(domain.Transaction{}, fmt.Errorf("failed to read csv header: %w", err))
			return
		}

		cols, headerErr := parseHeader(header)
		if headerErr != nil {
			if !yield(domain.Transaction{}, &domain.RowError{Line: 1, Err: headerErr}) {
				return
			}
		}

		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			var parseErr *stdcsv.ParseError
			if errors.As(err, &parseErr) {
				rowErr := &domain.RowError{Line: parseErr.StartLine, Err: fmt.Errorf("%w: %v", domain.ErrMalformedRow, parseErr.Err)}
				if !yield(domain.Transaction{}, rowErr) {
					return
				}
				continue
			}
			if err != nil {
				yield(domain.Transaction{}, fmt.Errorf("failed to read csv input: %w", err))
				return
			}

			line, _ := cr.FieldPos(0)
			if headerErr != nil {
				if !yield(domain.Transaction{}, &domain.RowError{Line: line, Err: ErrInvalidHeader}) {
					return
				}
				continue
			}

			tx, err := parseRecord(cols, record)
			if err != nil {
				err = &domain.RowError{Line: line, Err: err}
			}
			if !yield(tx, err) {
				return
			}
		}
	}
}

func parseHeader(header []string) (columns, error) {
	cols := columns{kind: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case columnType:
			cols.kind = i
		case columnClient:
			cols.client = i
		case columnTx:
			cols.tx = i
		case columnAmount:
			cols.amount = i
		}
	}

	if cols.kind < 0 || cols.client < 0 || cols.tx < 0 {
		return cols, fmt.Errorf("%w: expected columns %s, %s, %s, %s; got %q",
			ErrInvalidHeader, columnType, columnClient, columnTx, columnAmount, strings.Join(header, ","))
	}

	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRecord(cols columns, record []string) (domain.Transaction, error) {
	kind, err := domain.ParseTxKind(field(record, cols.kind))
	if err != nil {
		return domain.Transaction{}, err
	}

	client, err := domain.ParseClientID(field(record, cols.client))
	if err != nil {
		return domain.Transaction{}, err
	}

	id, err := domain.ParseTxID(field(record, cols.tx))
	if err != nil {
		return domain.Transaction{}, err
	}

	switch kind {
	case domain.TxKindDeposit, domain.TxKindWithdrawal:
		amount, err := domain.ParseAmount(field(record, cols.amount))
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%s %d: %w", kind, id, err)
		}
		if kind == domain.TxKindDeposit {
			return domain.NewDeposit(client, id, amount)
		}
		return domain.NewWithdrawal(client, id, amount)
	case domain.TxKindDispute:
		return domain.NewDispute(client, id), nil
	case domain.TxKindResolve:
		return domain.NewResolve(client, id), nil
	default:
		return domain.NewChargeback(client, id), nil
	}
}
