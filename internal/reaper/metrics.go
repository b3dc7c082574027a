// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamreaper_reaper_sweeps_total",
		Help: "Completed sweeps by termination reason",
	}, []string{"termination"})

	sweepsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamreaper_reaper_sweeps_skipped_total",
		Help: "Sweeps not started because another sweep was in flight",
	}, []string{"trigger"}) // trigger=scheduled/manual

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamreaper_reaper_sweep_duration_seconds",
		Help:    "Sweep wall time",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	})

	broadcastsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamreaper_reaper_broadcasts_expired_total",
		Help: "Broadcasts stopped and deleted for exceeding max lifetime",
	})

	recordFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamreaper_reaper_record_failures_total",
		Help: "Per-record failures during sweeps",
	}, []string{"op"}) // op=stop/delete

	lastSweepTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamreaper_reaper_last_sweep_timestamp_seconds",
		Help: "Unix time the last sweep finished",
	})

	sweepInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamreaper_reaper_sweep_in_flight",
		Help: "1 while a sweep is running",
	})
)

func observeResult(res Result) {
	sweepsTotal.WithLabelValues(string(res.Termination)).Inc()
	sweepDuration.Observe(res.Duration().Seconds())
	broadcastsExpired.Add(float64(res.Expired))
	recordFailures.WithLabelValues("stop").Add(float64(res.StopFailures))
	recordFailures.WithLabelValues("delete").Add(float64(res.DeleteFailures))
	lastSweepTimestamp.Set(float64(res.FinishedAt.Unix()))
}
