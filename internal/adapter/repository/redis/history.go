package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerreplay/internal/domain"
	"github.com/iho/ledgerreplay/internal/infrastructure/metrics"
)

const (
	fieldClient = "client"
	fieldKind   = "kind"
	fieldAmount = "amount"
	fieldStatus = "status"

	scanBatchSize = 500
)

// HistoryStore implements usecase.HistoryStore using one Redis hash per
// transaction, namespaced by run so that concurrent runs never share state.
type HistoryStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewHistoryStore creates a HistoryStore for a single run.
// Keys live under <keyPrefix><runID>: and expire after ttl.
func NewHistoryStore(client *redis.Client, keyPrefix, runID string, ttl time.Duration, m *metrics.Metrics) *HistoryStore {
	return &HistoryStore{
		client:  client,
		prefix:  keyPrefix + runID + ":",
		ttl:     ttl,
		metrics: m,
	}
}

func (s *HistoryStore) entryKey(id domain.TxID) string {
	return s.prefix + "tx:" + strconv.FormatUint(uint64(id), 10)
}

func (s *HistoryStore) countKey() string {
	return s.prefix + "count"
}

// Get retrieves an entry by transaction id.
func (s *HistoryStore) Get(ctx context.Context, id domain.TxID) (*domain.HistoryEntry, error) {
	defer s.observe("hgetall", time.Now())

	fields, err := s.client.HGetAll(ctx, s.entryKey(id)).Result()
	if err != nil {
		s.fail("hgetall")
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrTransactionNotFound
	}

	return decodeEntry(id, fields)
}

// Insert stores a new entry. The client field doubles as the existence guard.
func (s *HistoryStore) Insert(ctx context.Context, entry *domain.HistoryEntry) error {
	defer s.observe("insert", time.Now())

	key := s.entryKey(entry.TxID)

	created, err := s.client.HSetNX(ctx, key, fieldClient, strconv.FormatUint(uint64(entry.Client), 10)).Result()
	if err != nil {
		s.fail("insert")
		return err
	}
	if !created {
		return domain.ErrDuplicateTransaction
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldKind, string(entry.Kind),
			fieldAmount, entry.Amount.String(),
			fieldStatus, string(entry.Status),
		)
		pipe.Incr(ctx, s.countKey())
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
			pipe.Expire(ctx, s.countKey(), s.ttl)
		}
		return nil
	})
	if err != nil {
		s.fail("insert")
		return err
	}

	return nil
}

// UpdateStatus sets the lifecycle status of an existing entry.
func (s *HistoryStore) UpdateStatus(ctx context.Context, id domain.TxID, status domain.TxStatus) error {
	defer s.observe("update_status", time.Now())

	key := s.entryKey(id)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.fail("update_status")
		return err
	}
	if exists == 0 {
		return domain.ErrTransactionNotFound
	}

	if err := s.client.HSet(ctx, key, fieldStatus, string(status)).Err(); err != nil {
		s.fail("update_status")
		return err
	}

	return nil
}

// Len returns the number of stored entries.
func (s *HistoryStore) Len(ctx context.Context) (int, error) {
	defer s.observe("len", time.Now())

	n, err := s.client.Get(ctx, s.countKey()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		s.fail("len")
		return 0, err
	}
	return n, nil
}

// Scan calls fn once for every stored entry. SCAN may return a key more than
// once, so keys already visited are skipped.
func (s *HistoryStore) Scan(ctx context.Context, fn func(*domain.HistoryEntry) error) error {
	defer s.observe("scan", time.Now())

	visit := uniqueKeys(func(key string) error {
		id, err := strconv.ParseUint(key[len(s.prefix)+len("tx:"):], 10, 32)
		if err != nil {
			return fmt.Errorf("unexpected history key %q: %w", key, err)
		}

		entry, err := s.Get(ctx, domain.TxID(id))
		if err != nil {
			return err
		}
		return fn(entry)
	})

	iter := s.client.Scan(ctx, 0, s.prefix+"tx:*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		if err := visit(iter.Val()); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		s.fail("scan")
		return err
	}

	return nil
}

// uniqueKeys wraps fn so that it runs at most once per key.
func uniqueKeys(fn func(key string) error) func(key string) error {
	seen := make(map[string]struct{})
	return func(key string) error {
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}
		return fn(key)
	}
}

// Purge deletes every key of the run.
func (s *HistoryStore) Purge(ctx context.Context) error {
	defer s.observe("purge", time.Now())

	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	keys := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatchSize {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.fail("purge")
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		s.fail("purge")
		return err
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			s.fail("purge")
			return err
		}
	}

	return nil
}

func (s *HistoryStore) observe(operation string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RedisOperations.WithLabelValues(operation).Inc()
	s.metrics.RedisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *HistoryStore) fail(operation string) {
	if s.metrics != nil {
		s.metrics.RedisErrors.WithLabelValues(operation).Inc()
	}
}

func decodeEntry(id domain.TxID, fields map[string]string) (*domain.HistoryEntry, error) {
	client, err := strconv.ParseUint(fields[fieldClient], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("corrupt history entry %d: client: %w", id, err)
	}

	kind, err := domain.ParseTxKind(fields[fieldKind])
	if err != nil {
		return nil, fmt.Errorf("corrupt history entry %d: %w", id, err)
	}

	amount, err := decimal.NewFromString(fields[fieldAmount])
	if err != nil {
		return nil, fmt.Errorf("corrupt history entry %d: amount: %w", id, err)
	}

	status, err := domain.ParseTxStatus(fields[fieldStatus])
	if err != nil {
		return nil, fmt.Errorf("corrupt history entry %d: %w", id, err)
	}

	return &domain.HistoryEntry{
		TxID:   id,
		Client: domain.ClientID(client),
		Kind:   kind,
		Amount: amount,
		Status: status,
	}, nil
}
