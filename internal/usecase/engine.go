package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledgerreplay/internal/domain"
	"github.com/iho/ledgerreplay/internal/infrastructure/metrics"
)

// Stats counts what happened to the records of a run.
type Stats struct {
	Processed     int
	Applied       int
	MalformedRows int
	Rejected      map[string]int
}

// RejectedTotal returns the number of rejected or ignored records.
func (s Stats) RejectedTotal() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// Engine replays transaction records against per-client accounts.
// It owns the account map and the transaction history for a single run and
// is not safe for concurrent use.
type Engine struct {
	accounts map[domain.ClientID]*domain.Account
	history  HistoryStore
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	stats    Stats
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for rejected records and malformed rows.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an Engine backed by history.
func NewEngine(history HistoryStore, opts ...EngineOption) *Engine {
	e := &Engine{
		accounts: make(map[domain.ClientID]*domain.Account),
		history:  history,
		logger:   zerolog.Nop(),
		stats:    Stats{Rejected: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process folds records into the ledger in order and returns the final
// snapshot of every account. Row errors and rejected records are logged and
// skipped; any other error aborts the fold.
func (e *Engine) Process(ctx context.Context, records iter.Seq2[domain.Transaction, error]) (map[domain.ClientID]domain.AccountSnapshot, error) {
	for tx, err := range records {
		if err != nil {
			if !domain.IsRecoverable(err) {
				return nil, fmt.Errorf("failed to read transaction records: %w", err)
			}
			e.recordMalformed(err)
			continue
		}

		if err := e.Apply(ctx, tx); err != nil {
			var rejErr *domain.RejectionError
			if !errors.As(err, &rejErr) {
				return nil, err
			}
			e.logger.Error().
				Str("kind", string(tx.Kind)).
				Uint16("client", uint16(tx.Client)).
				Uint32("tx", uint32(tx.TxID)).
				Str("reason", rejErr.Reason()).
				Err(rejErr.Err).
				Msg("transaction skipped")
		}
	}

	e.observeLedger(ctx)

	return e.Accounts(), nil
}

// Apply applies a single record. It returns a *domain.RejectionError when the
// record is refused or ignored, in which case no state has changed. Any other
// error comes from the history store.
func (e *Engine) Apply(ctx context.Context, tx domain.Transaction) error {
	start := time.Now()
	err := e.apply(ctx, tx)

	e.stats.Processed++
	var rejErr *domain.RejectionError
	switch {
	case err == nil:
		e.stats.Applied++
	case errors.As(err, &rejErr):
		e.stats.Rejected[rejErr.Reason()]++
	}

	if e.metrics != nil {
		e.metrics.RecordsProcessed.WithLabelValues(string(tx.Kind)).Inc()
		if rejErr != nil {
			e.metrics.RecordsRejected.WithLabelValues(string(tx.Kind), rejErr.Reason()).Inc()
		}
		e.metrics.ApplyDuration.Observe(time.Since(start).Seconds())
	}

	return err
}

func (e *Engine) apply(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return domain.Reject(tx, err)
	}

	account := e.account(tx.Client)

	var err error
	switch tx.Kind {
	case domain.TxKindDeposit:
		err = e.deposit(ctx, account, tx)
	case domain.TxKindWithdrawal:
		err = e.withdraw(ctx, account, tx)
	case domain.TxKindDispute:
		err = e.dispute(ctx, account, tx)
	case domain.TxKindResolve:
		err = e.resolve(ctx, account, tx)
	case domain.TxKindChargeback:
		err = e.chargeback(ctx, account, tx)
	default:
		return domain.Reject(tx, domain.ErrUnknownKind)
	}
	if err != nil {
		return err
	}

	if err := account.CheckInvariants(); err != nil {
		return fmt.Errorf("account %d after %s %d: %w", tx.Client, tx.Kind, tx.TxID, err)
	}
	return nil
}

// account returns the client's account, creating it on first reference.
func (e *Engine) account(client domain.ClientID) *domain.Account {
	acc, ok := e.accounts[client]
	if !ok {
		acc = domain.NewAccount(client)
		e.accounts[client] = acc
	}
	return acc
}

func (e *Engine) deposit(ctx context.Context, acc *domain.Account, tx domain.Transaction) error {
	if err := e.checkUnique(ctx, tx); err != nil {
		return err
	}
	if err := acc.ValidateDeposit(); err != nil {
		return domain.Reject(tx, err)
	}
	if err := e.record(ctx, tx); err != nil {
		return err
	}
	return acc.Deposit(tx.Amount)
}

func (e *Engine) withdraw(ctx context.Context, acc *domain.Account, tx domain.Transaction) error {
	if err := e.checkUnique(ctx, tx); err != nil {
		return err
	}
	if err := acc.ValidateWithdrawal(tx.Amount); err != nil {
		return domain.Reject(tx, err)
	}
	if err := e.record(ctx, tx); err != nil {
		return err
	}
	return acc.Withdraw(tx.Amount)
}

func (e *Engine) dispute(ctx context.Context, acc *domain.Account, tx domain.Transaction) error {
	entry, err := e.lookup(ctx, tx, domain.TxStatusDisputed)
	if err != nil {
		return err
	}
	if err := acc.ValidateHold(entry.Amount); err != nil {
		return domain.Reject(tx, err)
	}
	if err := e.updateStatus(ctx, entry); err != nil {
		return err
	}
	return acc.Hold(entry.Amount)
}

func (e *Engine) resolve(ctx context.Context, acc *domain.Account, tx domain.Transaction) error {
	entry, err := e.lookup(ctx, tx, domain.TxStatusResolved)
	if err != nil {
		return err
	}
	if err := acc.ValidateRelease(entry.Amount); err != nil {
		return domain.Reject(tx, err)
	}
	if err := e.updateStatus(ctx, entry); err != nil {
		return err
	}
	return acc.Release(entry.Amount)
}

func (e *Engine) chargeback(ctx context.Context, acc *domain.Account, tx domain.Transaction) error {
	entry, err := e.lookup(ctx, tx, domain.TxStatusChargedBack)
	if err != nil {
		return err
	}
	if err := acc.ValidateRelease(entry.Amount); err != nil {
		return domain.Reject(tx, err)
	}
	if err := e.updateStatus(ctx, entry); err != nil {
		return err
	}
	return acc.Reverse(entry.Amount)
}

// checkUnique rejects a deposit or withdrawal whose id is already in history.
func (e *Engine) checkUnique(ctx context.Context, tx domain.Transaction) error {
	_, err := e.history.Get(ctx, tx.TxID)
	switch {
	case err == nil:
		return domain.Reject(tx, domain.ErrDuplicateTransaction)
	case errors.Is(err, domain.ErrTransactionNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up transaction %d: %w", tx.TxID, err)
	}
}

func (e *Engine) record(ctx context.Context, tx domain.Transaction) error {
	err := e.history.Insert(ctx, domain.NewHistoryEntry(tx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return domain.Reject(tx, err)
	default:
		return fmt.Errorf("failed to record transaction %d: %w", tx.TxID, err)
	}
}

// lookup finds the history entry referenced by a dispute, resolve or
// chargeback and moves the returned copy to next. The stored entry is not
// touched until updateStatus.
func (e *Engine) lookup(ctx context.Context, tx domain.Transaction, next domain.TxStatus) (*domain.HistoryEntry, error) {
	entry, err := e.history.Get(ctx, tx.TxID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, domain.Reject(tx, err)
		}
		return nil, fmt.Errorf("failed to look up transaction %d: %w", tx.TxID, err)
	}
	if err := entry.CheckOwner(tx.Client); err != nil {
		return nil, domain.Reject(tx, err)
	}
	if err := entry.Transition(next); err != nil {
		return nil, domain.Reject(tx, err)
	}
	return entry, nil
}

func (e *Engine) updateStatus(ctx context.Context, entry *domain.HistoryEntry) error {
	if err := e.history.UpdateStatus(ctx, entry.TxID, entry.Status); err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", entry.TxID, err)
	}
	return nil
}

func (e *Engine) recordMalformed(err error) {
	e.stats.MalformedRows++
	if e.metrics != nil {
		e.metrics.RowsMalformed.Inc()
	}
	e.logger.Error().
		Str("reason", domain.ReasonOf(err)).
		Err(err).
		Msg("row skipped")
}

func (e *Engine) observeLedger(ctx context.Context) {
	if e.metrics == nil {
		return
	}

	locked := 0
	for _, acc := range e.accounts {
		if acc.Locked {
			locked++
		}
	}
	e.metrics.Accounts.Set(float64(len(e.accounts)))
	e.metrics.AccountsLocked.Set(float64(locked))

	if n, err := e.history.Len(ctx); err == nil {
		e.metrics.HistoryEntries.Set(float64(n))
	}
}

// Accounts returns the current snapshot of every account.
func (e *Engine) Accounts() map[domain.ClientID]domain.AccountSnapshot {
	snapshots := make(map[domain.ClientID]domain.AccountSnapshot, len(e.accounts))
	for client, acc := range e.accounts {
		snapshots[client] = acc.Snapshot()
	}
	return snapshots
}

// Stats returns a copy of the run counters.
func (e *Engine) Stats() Stats {
	rejected := make(map[string]int, len(e.stats.Rejected))
	for reason, n := range e.stats.Rejected {
		rejected[reason] = n
	}
	s := e.stats
	s.Rejected = rejected
	return s
}
