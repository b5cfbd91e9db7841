package config

import (
    "context"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// NewRedisClient connects to the Redis backing rate limiting, the listing
// cache and cross-instance realtime fan-out. It returns nil unless
// REDIS_ENABLED is set and the server answers a ping; callers then run
// without those features; the reason is logged as a warning.
//
// REDIS_URL (redis:// or rediss://) wins over REDIS_ADDR, REDIS_PASSWORD
// and REDIS_DB.
func NewRedisClient(log logrus.FieldLogger) *redis.Client {
    if !envBool("REDIS_ENABLED", false) {
        return nil
    }
    opts := &redis.Options{
        Addr:     envStr("REDIS_ADDR", "localhost:6379"),
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
    }
    if url := envStr("REDIS_URL", ""); url != "" {
        parsed, err := redis.ParseURL(url)
        if err != nil {
            log.WithError(err).Warn("redis: invalid REDIS_URL, running without redis")
            return nil
        }
        opts = parsed
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.WithError(err).WithField("addr", opts.Addr).Warn("redis: ping failed, running without redis")
        _ = client.Close()
        return nil
    }
    log.WithField("addr", opts.Addr).Info("redis: connected")
    return client
}
