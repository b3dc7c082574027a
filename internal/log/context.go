// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log configures zerolog and carries correlation IDs through contexts.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type (
	requestIDKey struct{}
	sweepIDKey   struct{}
)

func withValue[K any](ctx context.Context, key K, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func valueOf[K any](ctx context.Context, key K) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// ContextWithRequestID tags ctx with an admin API request ID. Empty IDs are ignored.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey{}, id)
}

// ContextWithSweepID tags ctx with the ID of the sweep running under it.
func ContextWithSweepID(ctx context.Context, id string) context.Context {
	return withValue(ctx, sweepIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string { return valueOf(ctx, requestIDKey{}) }

func SweepIDFromContext(ctx context.Context) string { return valueOf(ctx, sweepIDKey{}) }

// WithContext adds the request and sweep IDs found in ctx to logger. A manual
// sweep carries both, linking the API access log to the sweep's records.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	rid, sid := RequestIDFromContext(ctx), SweepIDFromContext(ctx)
	if rid == "" && sid == "" {
		return logger
	}
	lc := logger.With()
	if rid != "" {
		lc = lc.Str(FieldRequestID, rid)
	}
	if sid != "" {
		lc = lc.Str(FieldSweepID, sid)
	}
	return lc.Logger()
}

// WithComponentFromContext is WithComponent plus the correlation IDs of ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
