package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/showdesk/internal/config"
)

// cachedResponse is the value stored per listing URL.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// bodyRecorder tees the response body into buf, up to limit bytes.
type bodyRecorder struct {
    http.ResponseWriter
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// cacheKey names a listing under generation gen. InvalidateCache bumps the
// generation, so entries stored for an older one are never read again and
// simply expire.
func cacheKey(prefix string, gen int64, r *http.Request) string {
    sum := sha1.Sum([]byte(r.URL.RequestURI()))
    return prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:])
}

func generationKey(prefix string) string { return prefix + ":gen" }

// generation returns the current cache generation; a missing key is 0.
func generation(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
    gen, err := rdb.Get(ctx, generationKey(prefix)).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return gen, err
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves GET responses from Redis and stores 200 responses
// on a miss. The generation is read before the handler runs: a response
// built from data older than a concurrent mutation is stored under the
// superseded generation and never served. Attach it to listing routes
// only: the recorder cannot be hijacked, so a WebSocket route behind it
// would break.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if req.Method != http.MethodGet {
                return next(c)
            }
            gen, err := generation(req.Context(), rdb, cfg.Prefix)
            if err != nil {
                c.Logger().Warnf("cache: read generation: %v", err)
                return next(c)
            }
            key := cacheKey(cfg.Prefix, gen, req)

            if raw, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if c.Response().Status != http.StatusOK || rec.overflow {
                return nil
            }
            raw, err := json.Marshal(cachedResponse{
                Status:      http.StatusOK,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        rec.buf.Bytes(),
            })
            if err == nil {
                err = rdb.Set(context.Background(), key, raw, cfg.TTL).Err()
            }
            if err != nil {
                c.Logger().Warnf("cache: store %s: %v", key, err)
            }
            return nil
        }
    }
}

// InvalidateCache moves the service to a new cache generation after a
// successful mutation, so no listing cached before it is served again.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := next(c); err != nil {
                return err
            }
            if c.Request().Method == http.MethodGet || c.Response().Status >= http.StatusBadRequest {
                return nil
            }
            if err := rdb.Incr(context.Background(), generationKey(cfg.Prefix)).Err(); err != nil {
                c.Logger().Warnf("cache: invalidate %s: %v", cfg.Prefix, err)
            }
            return nil
        }
    }
}
