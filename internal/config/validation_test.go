// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/streamreaper/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBase(t *testing.T) AppConfig {
	t.Helper()
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Path = filepath.Join(cfg.DataDir, "broadcasts.sqlite")
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(validBase(t)))
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"interval below one second", func(c *AppConfig) { c.Reaper.Interval = 999 * time.Millisecond }, "reaper.interval"},
		{"zero max age", func(c *AppConfig) { c.Reaper.MaxAge = 0 }, "reaper.maxAge"},
		{"zero page size", func(c *AppConfig) { c.Reaper.PageSize = 0 }, "reaper.pageSize"},
		{"negative sweep timeout", func(c *AppConfig) { c.Reaper.SweepTimeout = -time.Second }, "reaper.sweepTimeout"},
		{"unknown store backend", func(c *AppConfig) { c.Store.Backend = "etcd" }, "store.backend"},
		{"sqlite without path", func(c *AppConfig) { c.Store.Path = "" }, "store.path"},
		{"redis db out of range", func(c *AppConfig) {
			c.Store.Backend = "redis"
			c.Store.Redis.DB = 16
		}, "store.redis.db"},
		{"http control without base url", func(c *AppConfig) { c.Control.Backend = "http" }, "control.http.baseURL"},
		{"nats bad scheme", func(c *AppConfig) {
			c.Control.Backend = "nats"
			c.Control.NATS.URL = "http://localhost:4222"
		}, "control.nats.url"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"telemetry sampling out of range", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.SamplingRate = 2
		}, "telemetry.samplingRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase(t)
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Errors()))
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := validBase(t)
	cfg.Reaper.MaxAge = 0
	cfg.Reaper.PageSize = -1

	var verr validate.ValidationError
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.Len(t, verr.Errors(), 2)
}

func TestValidateReaper_MinimumInterval(t *testing.T) {
	r := Default().Reaper
	r.Interval = time.Second
	assert.NoError(t, ValidateReaper(r))

	r.Interval = 0
	assert.Error(t, ValidateReaper(r))
}
