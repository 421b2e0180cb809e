package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tenantgate/tenantgate/internal/api/response"
	"github.com/tenantgate/tenantgate/internal/cache"
)

const rateLimitWindow = time.Minute

// RateLimit caps requests per client IP within a one-minute window. A nil
// cache disables limiting, and cache errors let the request through so a
// Redis outage never blocks onboarding.
func RateLimit(c cache.Cache, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r)
			count, err := c.IncrWithExpiry(r.Context(), cache.RateLimitKey(client), rateLimitWindow)
			if err != nil {
				slog.Warn("rate limit check failed, allowing request", "client", client, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				response.Error(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
