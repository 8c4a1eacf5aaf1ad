package config

import "time"

// CacheConfig contains response cache configuration.
// When RedisAddr is set the cache uses the shared Redis backend; otherwise
// an in-process TTL map serves the same role.
type CacheConfig struct {
	// Enabled toggles response caching entirely.
	Enabled *bool `yaml:"enabled,omitempty"`

	// TTL is how long cached responses stay valid.
	TTL Duration `yaml:"ttl,omitempty"`

	// RedisAddr is the host:port of the shared Redis instance. Empty selects
	// the in-memory backend.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// RedisPasswordEnv names the environment variable holding the Redis password.
	RedisPasswordEnv string `yaml:"redis_password_env,omitempty"`

	// RedisDB is the Redis logical database number.
	RedisDB int `yaml:"redis_db,omitempty"`

	// KeyPrefix namespaces cache keys in shared Redis deployments.
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// DefaultCacheConfig returns the built-in cache defaults.
func DefaultCacheConfig() *CacheConfig {
	enabled := true
	return &CacheConfig{
		Enabled:   &enabled,
		TTL:       Duration(1 * time.Hour),
		KeyPrefix: "northstar:resp:",
	}
}

// CacheEnabled resolves the Enabled pointer, defaulting to true.
func (c *CacheConfig) CacheEnabled() bool {
	if c == nil || c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
