// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"

	"github.com/ManuGH/streamreaper/internal/validate"
)

var (
	storeBackends     = []string{"memory", "sqlite", "badger", "redis"}
	controlBackends   = []string{"local", "http", "nats"}
	telemetryExporter = []string{"grpc", "http"}
)

// minInterval matches the scheduler's one-second granularity.
const minInterval = time.Second

// Validate checks every field and reports all problems at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)
	v.NotEmpty("logService", cfg.LogService)

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	v.NonNegative("api.sweepRateLimit", cfg.API.SweepRateLimit)
	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	validateReaper(v, cfg.Reaper)
	validateStore(v, cfg.Store)
	validateControl(v, cfg.Control)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, telemetryExporter)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}

// ValidateReaper checks only the hot-reloadable reaper section.
func ValidateReaper(r ReaperConfig) error {
	v := validate.New()
	validateReaper(v, r)
	return v.Err()
}

func validateReaper(v *validate.Validator, r ReaperConfig) {
	v.DurationAtLeast("reaper.interval", r.Interval, minInterval)
	v.PositiveDuration("reaper.maxAge", r.MaxAge)
	v.Positive("reaper.pageSize", r.PageSize)
	v.NonNegativeDuration("reaper.sweepTimeout", r.SweepTimeout)
}

func validateStore(v *validate.Validator, s StoreConfig) {
	v.OneOf("store.backend", s.Backend, storeBackends)
	switch s.Backend {
	case "sqlite", "badger":
		if s.Path == "" {
			v.AddError("store.path", "required for sqlite and badger", s.Path)
			return
		}
		v.Directory("store.path", filepath.Dir(s.Path), true)
	case "redis":
		v.NotEmpty("store.redis.addr", s.Redis.Addr)
		v.Range("store.redis.db", s.Redis.DB, 0, 15)
	}
}

func validateControl(v *validate.Validator, c ControlConfig) {
	v.OneOf("control.backend", c.Backend, controlBackends)
	switch c.Backend {
	case "http":
		v.URL("control.http.baseURL", c.HTTP.BaseURL, []string{"http", "https"})
		v.PositiveDuration("control.http.timeout", c.HTTP.Timeout)
		v.FloatRange("control.http.rps", c.HTTP.RPS, 0, 100000)
		v.NonNegative("control.http.burst", c.HTTP.Burst)
		v.Positive("control.breaker.threshold", c.Breaker.Threshold)
		v.PositiveDuration("control.breaker.resetTimeout", c.Breaker.ResetTimeout)
	case "nats":
		v.URL("control.nats.url", c.NATS.URL, []string{"nats", "tls", "ws", "wss"})
		v.NotEmpty("control.nats.subject", c.NATS.Subject)
		v.PositiveDuration("control.nats.timeout", c.NATS.Timeout)
	}
}
