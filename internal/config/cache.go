package config

import "time"

// CacheConfig configures the Redis cache in front of the listing routes
// (GET /api/shows, GET /get-pdf-list). Mutations made through the same
// service purge Prefix, so TTL only bounds staleness caused by another
// instance or by edits to the store made outside the API.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int // larger responses are served but not stored
}

// LoadCacheConfig reads CACHE_*. service namespaces the keys so both
// binaries can share one Redis.
func LoadCacheConfig(service string) CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache") + ":" + service,
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.TTL <= 0 {
        c.TTL = 30 * time.Second
    }
    return c
}
