package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Options controls how NewClient verifies the connection.
type Options struct {
	ConnectTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultOptions returns the connection retry settings used by the CLI.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  10 * time.Second,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     1 * time.Second,
	}
}

// NewClient creates a new Redis client. The initial ping is retried with
// exponential backoff until ConnectTimeout elapses.
func NewClient(ctx context.Context, redisURL string, opts Options) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	b.MaxInterval = opts.MaxInterval
	b.MaxElapsedTime = opts.ConnectTimeout

	// Verify connection
	ping := func() error {
		return client.Ping(ctx).Err()
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
