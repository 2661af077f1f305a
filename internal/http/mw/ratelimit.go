package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitPerClient returns a middleware that rate limits by tenant.
// Should be applied AFTER APIKeyAuth. Falls back to IP-based limiting if
// no client is on the context.
func RateLimitPerClient(requestsPerMinute int) func(http.Handler) http.Handler {
	limiter := httprate.NewRateLimiter(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			client := GetClient(r.Context())
			if client == nil {
				return httprate.KeyByIP(r)
			}
			return "client:" + client.AppID, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		}),
	)
	return limiter.Handler
}
