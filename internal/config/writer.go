// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteFile when the target exists and force is off.
var ErrConfigExists = errors.New("config file already exists")

// ToFile converts a resolved config back into its YAML form. Secrets are
// omitted.
func ToFile(cfg AppConfig) FileConfig {
	enabled := cfg.Reaper.Enabled
	pageSize := cfg.Reaper.PageSize
	db := cfg.Store.Redis.DB
	rps := cfg.Control.HTTP.RPS
	burst := cfg.Control.HTTP.Burst
	threshold := cfg.Control.Breaker.Threshold
	telemetryEnabled := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate
	sweepLimit := cfg.API.SweepRateLimit
	metricsAddr := cfg.Metrics.ListenAddr

	return FileConfig{
		LogLevel:   cfg.LogLevel,
		LogService: cfg.LogService,
		DataDir:    cfg.DataDir,
		API:        &APIFile{ListenAddr: cfg.API.ListenAddr, SweepRateLimit: &sweepLimit},
		Metrics:    &MetricsFile{ListenAddr: &metricsAddr},
		Reaper: &ReaperFile{
			Enabled:      &enabled,
			Interval:     cfg.Reaper.Interval.String(),
			MaxAge:       cfg.Reaper.MaxAge.String(),
			PageSize:     &pageSize,
			SweepTimeout: cfg.Reaper.SweepTimeout.String(),
		},
		Store: &StoreFile{
			Backend: cfg.Store.Backend,
			Path:    cfg.Store.Path,
			Redis:   &RedisFile{Addr: cfg.Store.Redis.Addr, DB: &db, KeyPrefix: cfg.Store.Redis.KeyPrefix},
		},
		Control: &ControlFile{
			Backend: cfg.Control.Backend,
			HTTP: &ControlHTTPFile{
				BaseURL: cfg.Control.HTTP.BaseURL,
				Timeout: cfg.Control.HTTP.Timeout.String(),
				RPS:     &rps,
				Burst:   &burst,
			},
			NATS: &ControlNATSFile{
				URL:     cfg.Control.NATS.URL,
				Subject: cfg.Control.NATS.Subject,
				Timeout: cfg.Control.NATS.Timeout.String(),
			},
			Breaker: &BreakerFile{Threshold: &threshold, ResetTimeout: cfg.Control.Breaker.ResetTimeout.String()},
		},
		Telemetry: &TelemetryFile{
			Enabled:      &telemetryEnabled,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: &sampling,
		},
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(ToFile(cfg))
}

// WriteFile atomically writes cfg as YAML to path with mode 0600.
func WriteFile(path string, cfg AppConfig, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
