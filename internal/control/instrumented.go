// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stopTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamreaper_control_stop_total",
			Help: "Stop commands sent to the media plane",
		},
		[]string{"backend", "result"}, // result=success/unavailable/rejected/error
	)
	stopLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamreaper_control_stop_seconds",
			Help:    "Stop command latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
)

type instrumented struct {
	inner   StreamController
	backend string
}

// NewInstrumented wraps a controller with stop counters and latency.
func NewInstrumented(inner StreamController, backend string) StreamController {
	return &instrumented{inner: inner, backend: backend}
}

func (i *instrumented) Stop(ctx context.Context, streamID string, force bool, reason string) (err error) {
	start := time.Now()
	defer func() {
		stopTotal.WithLabelValues(i.backend, resultLabel(err)).Inc()
		stopLat.WithLabelValues(i.backend).Observe(time.Since(start).Seconds())
	}()
	return i.inner.Stop(ctx, streamID, force, reason)
}

// Unwrap returns the wrapped controller.
func (i *instrumented) Unwrap() StreamController { return i.inner }

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRejected):
		return "rejected"
	default:
		return "error"
	}
}
