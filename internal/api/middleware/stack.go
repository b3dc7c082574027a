// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress stack of the admin API.
package middleware

import (
	"net/http"
	"time"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig toggles the optional layers of the ingress stack.
type StackConfig struct {
	EnableMetrics bool
	// TracingService names the server span; empty disables tracing.
	TracingService string
	EnableLogging  bool
	// RateLimitPerMinute is a global per-IP limit; zero disables it.
	RateLimitPerMinute int
}

// NewRouter returns a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Stack(cfg)...)
	return r
}

// Stack returns the middleware in application order, outermost first:
// panic recovery, request ID, metrics, tracing, access log, rate limit.
// The access log sits inside tracing so its lines carry the trace context.
func Stack(cfg StackConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if cfg.EnableMetrics {
		chain = append(chain, Metrics())
	}
	if cfg.TracingService != "" {
		chain = append(chain, OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		chain = append(chain, xglog.Middleware())
	}
	if cfg.RateLimitPerMinute > 0 {
		chain = append(chain, RateLimit(RateLimitConfig{
			RequestLimit: cfg.RateLimitPerMinute,
			WindowSize:   time.Minute,
		}))
	}
	return chain
}
