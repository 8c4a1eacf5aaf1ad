package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// failingBackend errors on every operation.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("backend down")
}
func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}
func (failingBackend) Close() error { return nil }

func testResponse() *models.AgentResponse {
	return &models.AgentResponse{
		Role:    config.RoleResearch,
		Content: "the market is growing",
		Metadata: models.ResponseMetadata{
			AgentType: config.RoleResearch,
			Provider:  config.ProviderOpenAI,
			Model:     "gpt-4o",
		},
	}
}

func TestStoreThenGet(t *testing.T) {
	c := NewResponseCacheWithBackend(NewMemoryBackend(), time.Hour)
	defer c.Close()

	key := "test-key"
	c.Store(key, testResponse())

	// Stores are asynchronous.
	require.Eventually(t, func() bool {
		_, ok := c.Get(context.Background(), key)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	got, ok := c.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, config.RoleResearch, got.Role)
	assert.Equal(t, "the market is growing", got.Content)
	assert.Equal(t, "gpt-4o", got.Metadata.Model)
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c := NewResponseCacheWithBackend(NewMemoryBackend(), time.Hour)
	defer c.Close()

	_, ok := c.Get(context.Background(), "never-stored")
	assert.False(t, ok)
}

func TestBackendErrorIsAMiss(t *testing.T) {
	c := NewResponseCacheWithBackend(failingBackend{}, time.Hour)

	resp, ok := c.Get(context.Background(), "any")
	assert.False(t, ok)
	assert.Nil(t, resp)

	// Store against a dead backend must not panic or block.
	assert.NotPanics(t, func() { c.Store("any", testResponse()) })
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	backend := NewMemoryBackend()
	c := NewResponseCacheWithBackend(backend, time.Hour)
	defer c.Close()

	require.NoError(t, backend.Set(context.Background(), "bad", []byte("{not json"), time.Hour))

	_, ok := c.Get(context.Background(), "bad")
	assert.False(t, ok)
}

func TestDisabledCache(t *testing.T) {
	cfg := config.DefaultCacheConfig()
	cfg.Enabled = config.BoolPtr(false)

	c := NewResponseCache(cfg)
	assert.False(t, c.Enabled())

	c.Store("key", testResponse())
	_, ok := c.Get(context.Background(), "key")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestNewResponseCacheSelectsMemoryBackend(t *testing.T) {
	cfg := config.DefaultCacheConfig()
	c := NewResponseCache(cfg)
	defer c.Close()

	require.True(t, c.Enabled())
	_, isMemory := c.backend.(*MemoryBackend)
	assert.True(t, isMemory)
}

func TestNewResponseCacheSelectsRedisBackend(t *testing.T) {
	cfg := config.DefaultCacheConfig()
	cfg.RedisAddr = "localhost:6379"

	c := NewResponseCache(cfg)
	defer c.Close()

	require.True(t, c.Enabled())
	_, isRedis := c.backend.(*RedisBackend)
	assert.True(t, isRedis)
}
