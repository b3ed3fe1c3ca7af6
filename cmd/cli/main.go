package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	csvAdapter "github.com/iho/ledgerreplay/internal/adapter/csv"
	"github.com/iho/ledgerreplay/internal/adapter/repository/memory"
	redisRepo "github.com/iho/ledgerreplay/internal/adapter/repository/redis"
	"github.com/iho/ledgerreplay/internal/infrastructure/config"
	"github.com/iho/ledgerreplay/internal/infrastructure/ids"
	"github.com/iho/ledgerreplay/internal/infrastructure/logger"
	"github.com/iho/ledgerreplay/internal/infrastructure/metrics"
	"github.com/iho/ledgerreplay/internal/infrastructure/redis"
	"github.com/iho/ledgerreplay/internal/usecase"
)

// flags holds command line overrides of the environment configuration.
type flags struct {
	logLevel       string
	logFormat      string
	historyBackend string
	redisURL       string
	precision      int32
	sort           bool
	metricsFile    string
	reconcile      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "ledgerreplay <input.csv>",
		Short: "Replay a transaction log into per-client balances",
		Long: `Reads deposit, withdrawal, dispute, resolve and chargeback records from a
CSV file and writes the final balance of every client to stdout as CSV.
Rejected records and malformed rows are logged to stderr and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := applyFlags(cmd, cfg, f); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args[0], f.reconcile, stdout, stderr)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error or off (env LOG_LEVEL)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console or json (env LOG_FORMAT)")
	fs.StringVar(&f.historyBackend, "history-backend", "", "transaction history backend: memory or redis (env HISTORY_BACKEND)")
	fs.StringVar(&f.redisURL, "redis-url", "", "redis URL for the redis history backend (env REDIS_URL)")
	fs.Int32Var(&f.precision, "precision", 0, "decimal places of every output amount (env OUTPUT_PRECISION)")
	fs.BoolVar(&f.sort, "sort", true, "sort output rows by client id (env SORT_OUTPUT)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile (env METRICS_FILE)")
	fs.BoolVar(&f.reconcile, "reconcile", false, "check final balances against the transaction history")

	return cmd
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) error {
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fs.Changed("history-backend") {
		cfg.HistoryBackend = f.historyBackend
	}
	if fs.Changed("redis-url") {
		cfg.RedisURL = f.redisURL
	}
	if fs.Changed("precision") {
		cfg.OutputPrecision = f.precision
	}
	if fs.Changed("sort") {
		cfg.SortOutput = f.sort
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, path string, reconcile bool, stdout, stderr io.Writer) error {
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: stderr,
	})

	input, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer input.Close()

	m := metrics.New()
	idGen := ids.NewULIDGenerator()
	runID := idGen.Generate()

	history, closeHistory, err := newHistoryStore(ctx, cfg, runID, m, log)
	if err != nil {
		return err
	}
	defer closeHistory()

	uc := usecase.NewReplayUseCase(history, idGen, log, m)
	_, err = uc.Run(ctx, usecase.RunInput{
		RunID:  runID,
		Source: csvAdapter.NewReader(input),
		Sink: csvAdapter.NewWriter(stdout,
			csvAdapter.WithPrecision(cfg.OutputPrecision),
			csvAdapter.WithSortedClients(cfg.SortOutput),
		),
		Reconcile: reconcile,
	})

	if cfg.MetricsFile != "" {
		if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.MetricsFile).Msg("failed to write metrics")
		}
	}

	return err
}

func newHistoryStore(
	ctx context.Context,
	cfg *config.Config,
	runID string,
	m *metrics.Metrics,
	log zerolog.Logger,
) (usecase.HistoryStore, func(), error) {
	if cfg.HistoryBackend != config.HistoryBackendRedis {
		return memory.NewHistoryStore(), func() {}, nil
	}

	opts := redis.DefaultOptions()
	opts.ConnectTimeout = cfg.RedisConnectTimeout

	client, err := redis.NewClient(ctx, cfg.RedisURL, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Debug().Str("run_id", runID).Msg("connected to redis")

	store := redisRepo.NewHistoryStore(client, cfg.RedisKeyPrefix, runID, cfg.HistoryTTL, m)
	return store, func() { _ = client.Close() }, nil
}
