package config

import "time"

// CacheConfig defines settings for the response cache middleware that sits
// in front of expensive read-only admin endpoints (dashboard stats).  When
// Enabled is false or no Redis client is configured, caching is disabled.
// TTL defines the lifetime of cache entries, Prefix namespaces the keys and
// MaxBodyBytes caps the size of a cached response.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
