// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("STREAMREAPER_DATA_DIR", dataDir)

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, 30*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Reaper.MaxAge)
	assert.Equal(t, 100, cfg.Reaper.PageSize)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dataDir, "broadcasts.sqlite"), cfg.Store.Path)
	assert.Equal(t, "local", cfg.Control.Backend)
	assert.Empty(t, cfg.ConfigPath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
logLevel: debug
dataDir: `+dataDir+`
reaper:
  interval: 5s
  maxAge: 2m
  pageSize: 25
  sweepTimeout: 20s
store:
  backend: badger
control:
  backend: http
  http:
    baseURL: http://media.local:8080
    timeout: 3s
  breaker:
    threshold: 3
    resetTimeout: 10s
`)

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Reaper.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Reaper.MaxAge)
	assert.Equal(t, 25, cfg.Reaper.PageSize)
	assert.Equal(t, 20*time.Second, cfg.Reaper.SweepTimeout)
	assert.Equal(t, filepath.Join(dataDir, "broadcasts.badger"), cfg.Store.Path)
	assert.Equal(t, "http://media.local:8080", cfg.Control.HTTP.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Control.HTTP.Timeout)
	assert.Equal(t, 3, cfg.Control.Breaker.Threshold)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
dataDir: `+t.TempDir()+`
reaper:
  maxAge: 2m
`)
	t.Setenv("STREAMREAPER_REAPER_MAX_AGE", "45s")
	t.Setenv("STREAMREAPER_REAPER_PAGE_SIZE", "7")
	t.Setenv("STREAMREAPER_STORE_BACKEND", "memory")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Reaper.MaxAge)
	assert.Equal(t, 7, cfg.Reaper.PageSize)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Empty(t, cfg.Store.Path)
	assert.Contains(t, l.ConsumedEnvKeys, "STREAMREAPER_REAPER_MAX_AGE")
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `
reaper:
  maxAgee: 2m
`)
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoad_InvalidDurationReportsField(t *testing.T) {
	path := writeConfig(t, `
reaper:
  maxAge: ten minutes
  interval: soon
`)
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Contains(t, err.Error(), "reaper.maxAge")
	assert.Contains(t, err.Error(), "reaper.interval")
}

func TestLoad_RejectsNonYAMLExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
dataDir: `+t.TempDir()+`
reaper:
  interval: 500ms
`)
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reaper.interval")
}

func TestParseFile(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		fc, err := ParseFile(nil)
		require.NoError(t, err)
		assert.Nil(t, fc.Reaper)
	})

	t.Run("multiple documents", func(t *testing.T) {
		_, err := ParseFile([]byte("logLevel: info\n---\nlogLevel: debug\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple documents")
	})

	t.Run("zero values are distinguishable", func(t *testing.T) {
		fc, err := ParseFile([]byte("reaper:\n  enabled: false\n  pageSize: 0\n"))
		require.NoError(t, err)
		require.NotNil(t, fc.Reaper.Enabled)
		assert.False(t, *fc.Reaper.Enabled)
		require.NotNil(t, fc.Reaper.PageSize)
	})
}
