// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads streamreaper configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed strictly:
// unknown keys fail the load.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version    string
	ConfigPath string

	LogLevel   string
	LogService string
	DataDir    string

	API       APIConfig
	Metrics   MetricsConfig
	Reaper    ReaperConfig
	Store     StoreConfig
	Control   ControlConfig
	Telemetry TelemetryConfig
}

type APIConfig struct {
	ListenAddr string
	// Token, when set, is required as a bearer token on mutating endpoints.
	Token string
	// SweepRateLimit caps manual sweep triggers per minute per client.
	SweepRateLimit int
}

type MetricsConfig struct {
	// ListenAddr empty serves /metrics on the API listener only.
	ListenAddr string
}

type ReaperConfig struct {
	Enabled      bool
	Interval     time.Duration
	MaxAge       time.Duration
	PageSize     int
	SweepTimeout time.Duration
}

type StoreConfig struct {
	Backend string
	// Path defaults to a file under DataDir for sqlite and badger.
	Path  string
	Redis RedisConfig
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type ControlConfig struct {
	Backend string
	HTTP    ControlHTTPConfig
	NATS    ControlNATSConfig
	Breaker BreakerConfig
}

type ControlHTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

type ControlNATSConfig struct {
	URL     string
	Subject string
	Timeout time.Duration
}

type BreakerConfig struct {
	Threshold    int
	ResetTimeout time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "streamreaper",
		DataDir:    "/var/lib/streamreaper",
		API: APIConfig{
			ListenAddr:     ":8088",
			SweepRateLimit: 6,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
		},
		Reaper: ReaperConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			MaxAge:   10 * time.Minute,
			PageSize: 100,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "streamreaper:",
			},
		},
		Control: ControlConfig{
			Backend: "local",
			HTTP: ControlHTTPConfig{
				Timeout: 5 * time.Second,
				RPS:     50,
				Burst:   100,
			},
			NATS: ControlNATSConfig{
				URL:     "nats://localhost:4222",
				Subject: "streamreaper.control.stop",
				Timeout: 5 * time.Second,
			},
			Breaker: BreakerConfig{
				Threshold:    5,
				ResetTimeout: 30 * time.Second,
			},
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
