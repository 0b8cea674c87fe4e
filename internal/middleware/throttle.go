package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Counter is the subset of redis.Cmdable the throttle needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// LoginThrottle limits POSTs per client IP with a fixed-window counter kept
// in redis. A nil counter disables it; redis errors let the request through.
func LoginThrottle(counter Counter, limit int, window time.Duration, log zerolog.Logger) func(http.Handler) http.Handler {
	if counter == nil || limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := "throttle:" + r.URL.Path + ":" + clientIP(r)

			n, err := counter.Incr(ctx, key).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("throttle: redis unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				if err := counter.Expire(ctx, key, window).Err(); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("throttle: expire failed")
				}
			}
			if n > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "Too many attempts. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
