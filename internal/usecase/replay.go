package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledgerreplay/internal/domain"
	"github.com/iho/ledgerreplay/internal/infrastructure/metrics"
)

// ReplayUseCase runs one replay from a record source to a snapshot sink.
type ReplayUseCase struct {
	history HistoryStore
	idGen   IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewReplayUseCase creates a new ReplayUseCase.
func NewReplayUseCase(
	history HistoryStore,
	idGen IDGenerator,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ReplayUseCase {
	return &ReplayUseCase{
		history: history,
		idGen:   idGen,
		logger:  logger,
		metrics: metrics,
	}
}

// RunInput represents input for a replay run.
type RunInput struct {
	RunID     string // generated when empty
	Source    RecordSource
	Sink      SnapshotSink
	Reconcile bool
}

// RunReport summarizes a finished run.
type RunReport struct {
	RunID          string
	Stats          Stats
	Accounts       int
	Duration       time.Duration
	Reconciliation *ReconciliationReport
}

// Run folds every record of the source into a fresh ledger and writes the
// final snapshot to the sink. Nothing is written when the fold fails.
func (uc *ReplayUseCase) Run(ctx context.Context, input RunInput) (*RunReport, error) {
	start := time.Now()

	runID := input.RunID
	if runID == "" {
		runID = uc.idGen.Generate()
	}
	logger := uc.logger.With().Str("run_id", runID).Logger()

	if purger, ok := uc.history.(Purger); ok {
		defer func() {
			purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultPurgeTimeout)
			defer cancel()
			if err := purger.Purge(purgeCtx); err != nil {
				logger.Warn().Err(err).Msg("failed to purge transaction history")
			}
		}()
	}

	engine := NewEngine(uc.history, WithLogger(logger), WithMetrics(uc.metrics))

	accounts, err := engine.Process(ctx, input.Source.Records())
	if err != nil {
		return nil, fmt.Errorf("replay aborted: %w", err)
	}

	report := &RunReport{
		RunID:    runID,
		Stats:    engine.Stats(),
		Accounts: len(accounts),
	}

	if input.Reconcile {
		reconciliation, err := NewReconciliationUseCase(uc.history).Reconcile(ctx, accounts)
		if err != nil {
			return nil, fmt.Errorf("reconciliation failed: %w", err)
		}
		for _, d := range reconciliation.Discrepancies {
			logger.Error().
				Uint16("client", uint16(d.Client)).
				Str("recorded_total", d.RecordedTotal.String()).
				Str("calculated_total", d.CalculatedTotal.String()).
				Str("recorded_held", d.RecordedHeld.String()).
				Str("calculated_held", d.CalculatedHeld.String()).
				Msg("account does not reconcile with transaction history")
		}
		report.Reconciliation = reconciliation
	}

	snapshots := make([]domain.AccountSnapshot, 0, len(accounts))
	for _, s := range accounts {
		snapshots = append(snapshots, s)
	}
	if err := input.Sink.Write(ctx, snapshots); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	report.Duration = time.Since(start)

	logger.Info().
		Int("processed", report.Stats.Processed).
		Int("applied", report.Stats.Applied).
		Int("rejected", report.Stats.RejectedTotal()).
		Int("malformed_rows", report.Stats.MalformedRows).
		Int("accounts", report.Accounts).
		Dur("duration", report.Duration).
		Msg("replay finished")

	return report, nil
}
