package middleware

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/showdesk/internal/config"
)

// tokenBucket refills one token per refill_ms and takes one per request.
// Returns {allowed, remaining, wait_ms}.
var tokenBucket = redis.NewScript(`
local key       = KEYS[1]
local now       = tonumber(ARGV[1])
local capacity  = tonumber(ARGV[2])
local refill_ms = tonumber(ARGV[3])
local ttl_ms    = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local last   = tonumber(redis.call('HGET', key, 'last'))
if tokens == nil or last == nil then
  tokens = capacity
  last = now
end

local gained = math.floor(math.max(0, now - last) / refill_ms)
if gained > 0 then
  tokens = math.min(capacity, tokens + gained)
  last = last + gained * refill_ms
end

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = refill_ms - (now - last)
end

redis.call('HSET', key, 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', key, ttl_ms)
return {allowed, tokens, wait}
`)

// NewTokenBucket rate limits every request with a Redis token bucket keyed
// by cfg.KeyStrategy. A Redis failure lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillEvery.Milliseconds(), cfg.TTL().Milliseconds(),
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                c.Logger().Warnf("ratelimit: %s: %v", key, err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
            if res[0] == 1 {
                return next(c)
            }
            retry := (res[2] + 999) / 1000
            h.Set("Retry-After", strconv.FormatInt(retry, 10))
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded", "retry_after": retry})
        }
    }
}

// buildRateKey names the bucket a request draws from.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        return cfg.Prefix + ":ip:" + ip
    case "route":
        return cfg.Prefix + ":route:" + route
    default:
        return cfg.Prefix + ":ip:" + ip + ":route:" + route
    }
}
