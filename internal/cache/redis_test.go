package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, NewRedisStoreWithClient(client)
}

func TestRedisStoreSetGet(t *testing.T) {
	_, s := newTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "key", []byte("value"), time.Minute))
	val, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr, s := newTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "key", []byte("value"), 2*time.Second))

	d, hasTTL, err := s.TTL(ctx, "key")
	require.NoError(t, err)
	assert.True(t, hasTTL)
	assert.Greater(t, d, time.Second)

	mr.FastForward(3 * time.Second)

	_, err = s.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStorePersistentEntry(t *testing.T) {
	mr, s := newTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "key", []byte("value"), 0))

	_, hasTTL, err := s.TTL(ctx, "key")
	require.NoError(t, err)
	assert.False(t, hasTTL)

	// Survives arbitrary time passing.
	mr.FastForward(24 * time.Hour)
	val, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)
}

func TestRedisStoreDeletePrefix(t *testing.T) {
	_, s := newTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	// More keys than one SCAN page to exercise the cursor loop.
	for i := 0; i < 2500; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("demo:report:%d", i), []byte("x"), 0))
	}
	require.NoError(t, s.Set(ctx, "demo:popular:30:10", []byte("keep"), 0))

	deleted, err := s.DeletePrefix(ctx, "demo:report:")
	require.NoError(t, err)
	assert.Equal(t, 2500, deleted)

	_, err = s.Get(ctx, "demo:report:42")
	assert.ErrorIs(t, err, ErrCacheMiss)

	val, err := s.Get(ctx, "demo:popular:30:10")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), val)
}

func TestRedisStoreDeletePrefixEmpty(t *testing.T) {
	_, s := newTestRedis(t)
	defer s.Close()

	deleted, err := s.DeletePrefix(context.Background(), "demo:nothing:")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, s := newTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	mr.Close()

	_, err := s.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}

func TestRedisStoreStats(t *testing.T) {
	_, s := newTestRedis(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", stats.Backend)
	assert.Equal(t, int64(2), stats.Keys)
}
