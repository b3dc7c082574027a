// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamreaper_store_ops_total",
			Help: "Total broadcast store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/not_found/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamreaper_store_op_seconds",
			Help:    "Broadcast store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps any StateStore to capture metrics.
type instrumentedStore struct {
	inner   StateStore
	backend string
}

func NewInstrumentedStore(inner StateStore, backend string) StateStore {
	return &instrumentedStore{inner: inner, backend: backend}
}

// Unwrap returns the backend store.
func (i *instrumentedStore) Unwrap() StateStore { return i.inner }

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	dur := time.Since(start).Seconds()
	res := "success"
	switch {
	case errors.Is(err, broadcast.ErrNotFound):
		res = "not_found"
	case err != nil:
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(dur)
}

func (i *instrumentedStore) Put(ctx context.Context, b broadcast.Broadcast) (err error) {
	start := time.Now()
	defer func() { i.observe("put", start, err) }()
	return i.inner.Put(ctx, b)
}

func (i *instrumentedStore) Get(ctx context.Context, streamID string) (b broadcast.Broadcast, err error) {
	start := time.Now()
	defer func() { i.observe("get", start, err) }()
	return i.inner.Get(ctx, streamID)
}

func (i *instrumentedStore) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { i.observe("count", start, err) }()
	return i.inner.Count(ctx)
}

func (i *instrumentedStore) ListPage(ctx context.Context, offset, limit int) (list []broadcast.Broadcast, err error) {
	start := time.Now()
	defer func() { i.observe("list_page", start, err) }()
	return i.inner.ListPage(ctx, offset, limit)
}

func (i *instrumentedStore) Delete(ctx context.Context, streamID string) (err error) {
	start := time.Now()
	defer func() { i.observe("delete", start, err) }()
	return i.inner.Delete(ctx, streamID)
}

func (i *instrumentedStore) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { i.observe("ping", start, err) }()
	return i.inner.Ping(ctx)
}

func (i *instrumentedStore) Close() error {
	return i.inner.Close()
}
