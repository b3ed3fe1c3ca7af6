package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of one replay run.
type Metrics struct {
	registry *prometheus.Registry

	// Record metrics
	RecordsProcessed *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	RowsMalformed    prometheus.Counter
	ApplyDuration    prometheus.Histogram

	// Account metrics
	Accounts       prometheus.Gauge
	AccountsLocked prometheus.Gauge
	HistoryEntries prometheus.Gauge

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisDuration   *prometheus.HistogramVec
	RedisErrors     *prometheus.CounterVec
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		// Record metrics
		RecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerreplay_records_total",
				Help: "Total records processed by type",
			},
			[]string{"kind"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerreplay_records_rejected_total",
				Help: "Total records rejected or ignored by reason",
			},
			[]string{"kind", "reason"},
		),
		RowsMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerreplay_rows_malformed_total",
			Help: "Total input rows that could not be parsed",
		}),
		ApplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerreplay_apply_duration_seconds",
			Help:    "Duration of applying a single record",
			Buckets: []float64{.000001, .00001, .0001, .001, .01, .1},
		}),

		// Account metrics
		Accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerreplay_accounts",
			Help: "Number of client accounts in the ledger",
		}),
		AccountsLocked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerreplay_accounts_locked",
			Help: "Number of locked client accounts",
		}),
		HistoryEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerreplay_history_entries",
			Help: "Number of deposits and withdrawals retained for disputes",
		}),

		// Redis metrics
		RedisOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerreplay_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerreplay_redis_duration_seconds",
				Help:    "Redis operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerreplay_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),
	}
}

// Gatherer exposes the run registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
