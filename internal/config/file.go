// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// FileConfig mirrors the YAML file. Pointer fields distinguish "unset" from
// zero values; durations are Go duration strings ("30s", "10m").
type FileConfig struct {
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`
	DataDir    string `yaml:"dataDir,omitempty"`

	API       *APIFile       `yaml:"api,omitempty"`
	Metrics   *MetricsFile   `yaml:"metrics,omitempty"`
	Reaper    *ReaperFile    `yaml:"reaper,omitempty"`
	Store     *StoreFile     `yaml:"store,omitempty"`
	Control   *ControlFile   `yaml:"control,omitempty"`
	Telemetry *TelemetryFile `yaml:"telemetry,omitempty"`
}

type APIFile struct {
	ListenAddr     string `yaml:"listenAddr,omitempty"`
	Token          string `yaml:"token,omitempty"`
	SweepRateLimit *int   `yaml:"sweepRateLimit,omitempty"`
}

type MetricsFile struct {
	ListenAddr *string `yaml:"listenAddr,omitempty"`
}

type ReaperFile struct {
	Enabled      *bool  `yaml:"enabled,omitempty"`
	Interval     string `yaml:"interval,omitempty"`
	MaxAge       string `yaml:"maxAge,omitempty"`
	PageSize     *int   `yaml:"pageSize,omitempty"`
	SweepTimeout string `yaml:"sweepTimeout,omitempty"`
}

type StoreFile struct {
	Backend string     `yaml:"backend,omitempty"`
	Path    string     `yaml:"path,omitempty"`
	Redis   *RedisFile `yaml:"redis,omitempty"`
}

type RedisFile struct {
	Addr      string `yaml:"addr,omitempty"`
	Password  string `yaml:"password,omitempty"`
	DB        *int   `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

type ControlFile struct {
	Backend string           `yaml:"backend,omitempty"`
	HTTP    *ControlHTTPFile `yaml:"http,omitempty"`
	NATS    *ControlNATSFile `yaml:"nats,omitempty"`
	Breaker *BreakerFile     `yaml:"breaker,omitempty"`
}

type ControlHTTPFile struct {
	BaseURL string   `yaml:"baseURL,omitempty"`
	Token   string   `yaml:"token,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
	RPS     *float64 `yaml:"rps,omitempty"`
	Burst   *int     `yaml:"burst,omitempty"`
}

type ControlNATSFile struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type BreakerFile struct {
	Threshold    *int   `yaml:"threshold,omitempty"`
	ResetTimeout string `yaml:"resetTimeout,omitempty"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
