package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"retail-report-api/internal/metrics"
)

// Store defines the interface for the durable key-value cache.
// This abstraction allows swapping between memory cache (development/tests)
// and Redis cache (production) without changing business logic.
//
// The cache is an acceleration layer, never a source of truth: callers must
// treat ErrCacheUnavailable as a miss plus a degradation event, not as a
// failure of the request.
type Store interface {
	// Get retrieves a raw value by key. Returns ErrCacheMiss if not found,
	// ErrCacheUnavailable if the backend cannot be reached.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A ttl <= 0 means the entry
	// persists until explicit deletion.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all keys under the given prefix and returns how
	// many were deleted (0 if none matched). Implementations must use a
	// cursor-based scan, never a blocking full key listing.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// TTL returns the remaining time-to-live for key. The bool is false when
	// the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)

	// Stats returns backend statistics for the stats endpoint.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the store's resources.
	Close() error
}

// Stats describes the state of the cache backend.
type Stats struct {
	Backend        string `json:"backend"`
	Keys           int64  `json:"db_keys"`
	KeyspaceHits   int64  `json:"keyspace_hits"`
	KeyspaceMisses int64  `json:"keyspace_misses"`
	UsedMemory     string `json:"used_memory_human,omitempty"`
	Version        string `json:"version,omitempty"`
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"

	// ErrCacheUnavailable indicates the cache backend could not be reached.
	// Callers degrade to a direct computation instead of failing.
	ErrCacheUnavailable CacheError = "cache unavailable"
)

// GetJSON retrieves a value and decodes it into T. A stored value that fails
// to decode is treated as a miss: the corrupt entry is deleted best-effort
// and reported as a cache-integrity event, never surfaced as an error.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T
	data, err := s.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[Cache] corrupt entry key=%s: %v", key, err)
		metrics.CacheCorruptEntries.Inc()
		_ = s.Delete(ctx, key)
		return zero, false, nil
	}
	return v, true, nil
}

// SetJSON encodes v as JSON and stores it under key. encoding/json is
// deterministic for a fixed type, so cached and freshly computed values for
// the same input are byte-identical.
func SetJSON[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}
