package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBackend(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	b := NewRedisBackend(mr.Addr(), "", 0, "northstar:resp:")
	t.Cleanup(func() { b.Close() })
	return mr, b
}

func TestRedisBackendSetGet(t *testing.T) {
	_, b := setupRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("value"), time.Hour))

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
}

func TestRedisBackendMiss(t *testing.T) {
	_, b := setupRedisBackend(t)

	_, err := b.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisBackendKeyPrefix(t *testing.T) {
	mr, b := setupRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "abc", []byte("v"), time.Hour))
	assert.True(t, mr.Exists("northstar:resp:abc"))
}

func TestRedisBackendTTLExpiry(t *testing.T) {
	mr, b := setupRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))

	// miniredis advances TTLs manually.
	mr.FastForward(2 * time.Minute)

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisBackendPing(t *testing.T) {
	mr, b := setupRedisBackend(t)

	assert.NoError(t, b.Ping(context.Background()))

	mr.Close()
	assert.Error(t, b.Ping(context.Background()))
}

func TestResponseCacheOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewResponseCacheWithBackend(NewRedisBackend(mr.Addr(), "", 0, "northstar:resp:"), time.Hour)
	defer c.Close()

	c.Store("key-1", testResponse())

	require.Eventually(t, func() bool {
		_, ok := c.Get(context.Background(), "key-1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	got, ok := c.Get(context.Background(), "key-1")
	require.True(t, ok)
	assert.Equal(t, "the market is growing", got.Content)
}
