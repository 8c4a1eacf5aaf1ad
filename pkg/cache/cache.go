package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// ErrNotFound is returned by backends when a key is absent or expired.
var ErrNotFound = errors.New("cache entry not found")

// storeTimeout bounds the background write so fire-and-forget goroutines
// cannot pile up behind a dead backend.
const storeTimeout = 5 * time.Second

// Backend is the storage behind the response cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// cachedResponse is the stored envelope for one agent response.
type cachedResponse struct {
	Role     config.AgentRole        `json:"role"`
	Content  string                  `json:"content"`
	Metadata models.ResponseMetadata `json:"metadata"`
	StoredAt time.Time               `json:"stored_at"`
}

// ResponseCache caches agent responses keyed by Key. Disabled caches answer
// every probe with a miss and drop every store.
type ResponseCache struct {
	backend Backend
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger
}

// NewResponseCache builds a cache from configuration. A configured Redis
// address selects the Redis backend; otherwise entries live in process
// memory. The Redis connection is lazy: an unreachable Redis degrades every
// operation to a logged miss until it recovers.
func NewResponseCache(cfg *config.CacheConfig) *ResponseCache {
	logger := slog.With("component", "response_cache")

	if cfg == nil {
		cfg = config.DefaultCacheConfig()
	}
	if !cfg.CacheEnabled() {
		logger.Info("Response cache disabled")
		return &ResponseCache{enabled: false, logger: logger}
	}

	ttl := cfg.TTL.Duration()
	var backend Backend
	if cfg.RedisAddr != "" {
		password := ""
		if cfg.RedisPasswordEnv != "" {
			password = os.Getenv(cfg.RedisPasswordEnv)
		}
		backend = NewRedisBackend(cfg.RedisAddr, password, cfg.RedisDB, cfg.KeyPrefix)
		logger.Info("Response cache using Redis backend", "addr", cfg.RedisAddr, "ttl", ttl)
	} else {
		backend = NewMemoryBackend()
		logger.Info("Response cache using memory backend", "ttl", ttl)
	}

	return &ResponseCache{
		backend: backend,
		ttl:     ttl,
		enabled: true,
		logger:  logger,
	}
}

// NewResponseCacheWithBackend builds a cache on an explicit backend.
func NewResponseCacheWithBackend(backend Backend, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		backend: backend,
		ttl:     ttl,
		enabled: true,
		logger:  slog.With("component", "response_cache"),
	}
}

// Enabled reports whether probes can ever hit.
func (c *ResponseCache) Enabled() bool {
	return c.enabled
}

// Get probes the cache. Backend errors are logged and reported as misses so
// a degraded cache never fails a request.
func (c *ResponseCache) Get(ctx context.Context, key string) (*models.AgentResponse, bool) {
	if !c.enabled {
		return nil, false
	}

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("Cache read failed, treating as miss", "error", err)
		}
		return nil, false
	}

	var stored cachedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("Cache entry corrupt, treating as miss", "error", err)
		return nil, false
	}

	return &models.AgentResponse{
		Role:     stored.Role,
		Content:  stored.Content,
		Metadata: stored.Metadata,
	}, true
}

// Store writes a response in the background. Errors are logged, never
// returned: a failed store costs one future cache miss, nothing more.
func (c *ResponseCache) Store(key string, response *models.AgentResponse) {
	if !c.enabled || response == nil {
		return
	}

	stored := cachedResponse{
		Role:     response.Role,
		Content:  response.Content,
		Metadata: response.Metadata,
		StoredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(stored)
	if err != nil {
		c.logger.Warn("Failed to marshal response for cache", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("Cache write failed", "error", err)
		}
	}()
}

// Close releases backend resources.
func (c *ResponseCache) Close() error {
	if c.backend == nil {
		return nil
	}
	if err := c.backend.Close(); err != nil {
		return fmt.Errorf("failed to close cache backend: %w", err)
	}
	return nil
}
