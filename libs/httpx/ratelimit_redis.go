package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimiter is a fixed-window limiter shared by every gateway
// instance through Redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
	// KeyFunc picks the bucket for a request; the client address by default.
	KeyFunc func(*http.Request) string
}

// The script returns the hit count and the remaining window in milliseconds.
var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix, KeyFunc: clientKey}
}

type windowState struct {
	count int64
	reset time.Duration
}

// Middleware rejects requests over the window limit. With failOpen set, Redis
// errors let the request through instead of answering 503.
func (rl *RedisRateLimiter) Middleware(logger *zap.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.prefix + ":" + rl.KeyFunc(r)
			state, err := rl.hit(r.Context(), key)
			if err != nil {
				logger.Warn("redis rate limiter error", zap.Error(err), zap.String("key", key))
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}
			if !writeLimitHeaders(w.Header(), rl.limit, state) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeLimitHeaders reports whether the request is within the limit.
func writeLimitHeaders(h http.Header, limit int, state windowState) bool {
	resetSecs := int((state.reset + time.Second - 1) / time.Second)
	if resetSecs < 1 {
		resetSecs = 1
	}
	remaining := int64(limit) - state.count
	if remaining < 0 {
		remaining = 0
	}
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetSecs))
	if state.count > int64(limit) {
		h.Set("Retry-After", strconv.Itoa(resetSecs))
		return false
	}
	return true
}

func (rl *RedisRateLimiter) hit(ctx context.Context, key string) (windowState, error) {
	res, err := redisFixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Int64Slice()
	if err != nil {
		return windowState{}, err
	}
	if len(res) != 2 {
		return windowState{}, fmt.Errorf("unexpected redis script result %v", res)
	}
	return windowState{count: res[0], reset: time.Duration(res[1]) * time.Millisecond}, nil
}
