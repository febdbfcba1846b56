// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	// WindowSize is the time window for rate limiting
	WindowSize time.Duration
	// KeyFunc extracts the rate limit key from the request. Nil means per-IP.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit creates a rate limiting middleware using the httprate library
// (sliding window counter).
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.WindowSize.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)

			resp := `{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`
			_, _ = w.Write([]byte(resp))
		}),
	)
}

// CommandRateLimit limits operator command routes. Commands are hand-driven,
// so a per-second window keeps a stuck control surface from flooding the
// engine while staying out of the way of rapid legitimate cueing.
func CommandRateLimit(rps, burst int) func(http.Handler) http.Handler {
	if rps < 1 {
		rps = 1
	}
	if burst < rps {
		burst = rps
	}
	return RateLimit(RateLimitConfig{
		RequestLimit: burst,
		WindowSize:   time.Duration(burst/rps) * time.Second,
	})
}

// WriteRateLimit limits document write routes, which rebuild the index.
func WriteRateLimit() func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit: 30,
		WindowSize:   time.Minute,
	})
}
