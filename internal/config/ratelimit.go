package config

import "time"

// RateLimitConfig configures the Redis token bucket applied to every route
// of a service. Each key starts with Capacity tokens and regains one token
// every RefillEvery.
type RateLimitConfig struct {
    Enabled     bool
    Capacity    int
    RefillEvery time.Duration
    KeyStrategy string // "ip", "route" or "ip_route"
    Prefix      string
}

// LoadRateLimitConfig reads RATE_LIMIT_*. Uploads and show toggles are
// operator actions, so the defaults are generous. service namespaces the
// bucket keys.
func LoadRateLimitConfig(service string) RateLimitConfig {
    c := RateLimitConfig{
        Enabled:     envBool("RATE_LIMIT_ENABLED", true),
        Capacity:    envInt("RATE_LIMIT_CAPACITY", 60),
        RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", time.Second),
        KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:      envStr("RATE_LIMIT_PREFIX", "rl") + ":" + service,
    }
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillEvery <= 0 {
        c.RefillEvery = time.Second
    }
    return c
}

// TTL is how long an idle bucket is kept: long enough to refill completely.
func (c RateLimitConfig) TTL() time.Duration {
    return time.Duration(c.Capacity+1) * c.RefillEvery
}
