// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/streamreaper/internal/log"
)

// RateLimitConfig configures a sliding-window limiter.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// KeyFuncs are combined into one key; defaults to the client IP.
	KeyFuncs []httprate.KeyFunc
	// Code is the error code returned in the 429 body; defaults to "rate_limit_exceeded".
	Code string
}

// RateLimit returns an httprate limiter that answers with the admin API's JSON error shape.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFuncs := cfg.KeyFuncs
	if len(keyFuncs) == 0 {
		keyFuncs = []httprate.KeyFunc{httprate.KeyByIP}
	}
	code := cfg.Code
	if code == "" {
		code = "rate_limit_exceeded"
	}
	retryAfter := strconv.Itoa(int(cfg.WindowSize.Round(time.Second).Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFuncs...),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":      code,
				"request_id": log.RequestIDFromContext(r.Context()),
			})
		}),
	)
}

// SweepRateLimit limits manual sweep triggers to perMinute per client IP and
// endpoint, independent of the global limit.
func SweepRateLimit(perMinute int) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit: perMinute,
		WindowSize:   time.Minute,
		KeyFuncs:     []httprate.KeyFunc{httprate.KeyByIP, httprate.KeyByEndpoint},
		Code:         "sweep_rate_limited",
	})
}
