package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// scanBatch is the COUNT hint for cursor scans during prefix deletion.
	scanBatch = 1000

	// deleteBatch caps how many keys are deleted per pipeline round-trip.
	deleteBatch = 500
)

// RedisStore implements Store using Redis.
// The client is created once at startup and shared across requests; the
// store owns its lifecycle and closes it on Close.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore creates a Redis-backed cache store with a pooled client.
// A failed ping is logged by the caller but is not fatal: the store
// degrades to always-miss until the backend recovers.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	return &RedisStore{client: client}
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity to the backend.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get retrieves a raw value by key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return data, nil
}

// Set stores a value. A ttl <= 0 persists the entry until explicit deletion.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a single key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// DeletePrefix removes every key under prefix using a cursor-based SCAN so
// large keyspaces never block the server. Returns the number of keys removed.
//
// The scan runs to completion before any deletion happens. SCAN cursors are
// positional, so deleting matched keys while the iteration is still in
// progress shifts the keyspace under the cursor and skips entries.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		matched []string
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		matched = append(matched, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	var deleted int
	for start := 0; start < len(matched); start += deleteBatch {
		end := start + deleteBatch
		if end > len(matched) {
			end = len(matched)
		}
		n, err := s.client.Del(ctx, matched[start:end]...).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

// TTL returns the remaining time-to-live for key. go-redis reports -2 for a
// missing key and -1 for a key without expiry; both map to (0, false).
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// Stats reports keyspace counters from the backend. INFO fields are parsed
// best-effort since not every deployment exposes all sections.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "redis"}

	keys, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	stats.Keys = keys

	if info, err := s.client.Info(ctx).Result(); err == nil {
		for _, line := range strings.Split(info, "\n") {
			line = strings.TrimSpace(line)
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			switch name {
			case "redis_version":
				stats.Version = value
			case "used_memory_human":
				stats.UsedMemory = value
			case "keyspace_hits":
				stats.KeyspaceHits, _ = strconv.ParseInt(value, 10, 64)
			case "keyspace_misses":
				stats.KeyspaceMisses, _ = strconv.ParseInt(value, 10, 64)
			}
		}
	}

	return stats, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
