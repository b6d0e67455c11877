package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultCredentialRateLimit returns the default limit for authenticate and
// password endpoints (10 requests per minute)
func DefaultCredentialRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
	}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByTarget rate limits by client IP and the account named in the
// URL parameter, so one client cannot hammer a single account.
func RateLimitByTarget(config RateLimitConfig, param func(r *http.Request) string) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP, func(r *http.Request) (string, error) {
			return param(r), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}
