package config

import "time"

// CacheConfig controls the Redis response cache on the ops server's read
// endpoints. Seat maps change with every reservation, so the default TTL
// is short.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", false),
		TTL:          envDur("CACHE_TTL", time.Second),
		Prefix:       envStr("CACHE_PREFIX", "ems:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
