package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// History backends.
const (
	HistoryBackendMemory = "memory"
	HistoryBackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Transaction history
	HistoryBackend string        `env:"HISTORY_BACKEND" envDefault:"memory"`
	HistoryTTL     time.Duration `env:"HISTORY_TTL"     envDefault:"24h"`

	// Redis
	RedisURL            string        `env:"REDIS_URL"             envDefault:"redis://localhost:6379"`
	RedisKeyPrefix      string        `env:"REDIS_KEY_PREFIX"      envDefault:"ledgerreplay:"`
	RedisConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`

	// Output
	OutputPrecision int32 `env:"OUTPUT_PRECISION" envDefault:"4"`
	SortOutput      bool  `env:"SORT_OUTPUT"      envDefault:"true"`

	// Metrics textfile (leave empty to disable)
	MetricsFile string `env:"METRICS_FILE" envDefault:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values env.Parse cannot.
func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case HistoryBackendMemory, HistoryBackendRedis:
	default:
		return fmt.Errorf("invalid history backend %q", c.HistoryBackend)
	}

	if c.OutputPrecision < 0 {
		return fmt.Errorf("output precision must not be negative, got %d", c.OutputPrecision)
	}

	return nil
}
