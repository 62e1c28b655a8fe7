package throttle

import (
	"math"
	"net/http"
	"strconv"
)

// Middleware guards an http.Handler with l. Rejected requests get
// 429 Too Many Requests with a Retry-After header in whole seconds.
func Middleware(l *RateLimiter) func(http.Handler) http.Handler {
	limit := strconv.FormatInt(l.MaxCalls(), 10)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", limit)
			if l.TryAcquire() {
				next.ServeHTTP(w, r)
				return
			}

			seconds := int64(math.Ceil(l.RetryAfter().Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}
