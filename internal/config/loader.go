// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // every env key Load looked at
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseString(EnvPrefix+key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseBool(EnvPrefix+key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseInt(EnvPrefix+key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseDuration(EnvPrefix+key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseFloat(EnvPrefix+key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
		cfg.ConfigPath = l.configPath
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Backend {
		case "sqlite":
			cfg.Store.Path = filepath.Join(cfg.DataDir, "broadcasts.sqlite")
		case "badger":
			cfg.Store.Path = filepath.Join(cfg.DataDir, "broadcasts.badger")
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes one strict YAML document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func parseDuration(field, raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w: %q", field, ErrInvalidDuration, raw)
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)
	setString(&cfg.DataDir, f.DataDir)

	if f.API != nil {
		setString(&cfg.API.ListenAddr, f.API.ListenAddr)
		setString(&cfg.API.Token, f.API.Token)
		setPtr(&cfg.API.SweepRateLimit, f.API.SweepRateLimit)
	}
	if f.Metrics != nil {
		setPtr(&cfg.Metrics.ListenAddr, f.Metrics.ListenAddr)
	}

	var errs []error
	if r := f.Reaper; r != nil {
		setPtr(&cfg.Reaper.Enabled, r.Enabled)
		setPtr(&cfg.Reaper.PageSize, r.PageSize)
		errs = append(errs,
			parseDuration("reaper.interval", r.Interval, &cfg.Reaper.Interval),
			parseDuration("reaper.maxAge", r.MaxAge, &cfg.Reaper.MaxAge),
			parseDuration("reaper.sweepTimeout", r.SweepTimeout, &cfg.Reaper.SweepTimeout),
		)
	}
	if s := f.Store; s != nil {
		setString(&cfg.Store.Backend, s.Backend)
		setString(&cfg.Store.Path, s.Path)
		if r := s.Redis; r != nil {
			setString(&cfg.Store.Redis.Addr, r.Addr)
			setString(&cfg.Store.Redis.Password, r.Password)
			setPtr(&cfg.Store.Redis.DB, r.DB)
			setString(&cfg.Store.Redis.KeyPrefix, r.KeyPrefix)
		}
	}
	if c := f.Control; c != nil {
		setString(&cfg.Control.Backend, c.Backend)
		if h := c.HTTP; h != nil {
			setString(&cfg.Control.HTTP.BaseURL, h.BaseURL)
			setString(&cfg.Control.HTTP.Token, h.Token)
			setPtr(&cfg.Control.HTTP.RPS, h.RPS)
			setPtr(&cfg.Control.HTTP.Burst, h.Burst)
			errs = append(errs, parseDuration("control.http.timeout", h.Timeout, &cfg.Control.HTTP.Timeout))
		}
		if n := c.NATS; n != nil {
			setString(&cfg.Control.NATS.URL, n.URL)
			setString(&cfg.Control.NATS.Subject, n.Subject)
			errs = append(errs, parseDuration("control.nats.timeout", n.Timeout, &cfg.Control.NATS.Timeout))
		}
		if b := c.Breaker; b != nil {
			setPtr(&cfg.Control.Breaker.Threshold, b.Threshold)
			errs = append(errs, parseDuration("control.breaker.resetTimeout", b.ResetTimeout, &cfg.Control.Breaker.ResetTimeout))
		}
	}
	if t := f.Telemetry; t != nil {
		setPtr(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setPtr(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}
	return errors.Join(errs...)
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("LOG_SERVICE", cfg.LogService)
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)

	cfg.API.ListenAddr = l.envString("API_LISTEN", cfg.API.ListenAddr)
	cfg.API.Token = l.envString("API_TOKEN", cfg.API.Token)
	cfg.API.SweepRateLimit = l.envInt("API_SWEEP_RATE_LIMIT", cfg.API.SweepRateLimit)
	cfg.Metrics.ListenAddr = l.envString("METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Reaper.Enabled = l.envBool("REAPER_ENABLED", cfg.Reaper.Enabled)
	cfg.Reaper.Interval = l.envDuration("REAPER_INTERVAL", cfg.Reaper.Interval)
	cfg.Reaper.MaxAge = l.envDuration("REAPER_MAX_AGE", cfg.Reaper.MaxAge)
	cfg.Reaper.PageSize = l.envInt("REAPER_PAGE_SIZE", cfg.Reaper.PageSize)
	cfg.Reaper.SweepTimeout = l.envDuration("REAPER_SWEEP_TIMEOUT", cfg.Reaper.SweepTimeout)

	cfg.Store.Backend = l.envString("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString("STORE_PATH", cfg.Store.Path)
	cfg.Store.Redis.Addr = l.envString("REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString("REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt("REDIS_DB", cfg.Store.Redis.DB)
	cfg.Store.Redis.KeyPrefix = l.envString("REDIS_KEY_PREFIX", cfg.Store.Redis.KeyPrefix)

	cfg.Control.Backend = l.envString("CONTROL_BACKEND", cfg.Control.Backend)
	cfg.Control.HTTP.BaseURL = l.envString("CONTROL_HTTP_BASE_URL", cfg.Control.HTTP.BaseURL)
	cfg.Control.HTTP.Token = l.envString("CONTROL_HTTP_TOKEN", cfg.Control.HTTP.Token)
	cfg.Control.HTTP.Timeout = l.envDuration("CONTROL_HTTP_TIMEOUT", cfg.Control.HTTP.Timeout)
	cfg.Control.HTTP.RPS = l.envFloat("CONTROL_HTTP_RPS", cfg.Control.HTTP.RPS)
	cfg.Control.HTTP.Burst = l.envInt("CONTROL_HTTP_BURST", cfg.Control.HTTP.Burst)
	cfg.Control.NATS.URL = l.envString("NATS_URL", cfg.Control.NATS.URL)
	cfg.Control.NATS.Subject = l.envString("NATS_SUBJECT", cfg.Control.NATS.Subject)
	cfg.Control.NATS.Timeout = l.envDuration("NATS_TIMEOUT", cfg.Control.NATS.Timeout)
	cfg.Control.Breaker.Threshold = l.envInt("BREAKER_THRESHOLD", cfg.Control.Breaker.Threshold)
	cfg.Control.Breaker.ResetTimeout = l.envDuration("BREAKER_RESET_TIMEOUT", cfg.Control.Breaker.ResetTimeout)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
