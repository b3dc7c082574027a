// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
	"path/filepath"
)

// Backend names accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and parameterises a store backend.
type Config struct {
	Backend string
	// Path is the sqlite file or badger directory.
	Path  string
	Redis RedisConfig
}

// OpenStore creates a StateStore based on the backend configuration.
// The result is wrapped with operation metrics.
func OpenStore(cfg Config) (StateStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendSqlite
	}

	var (
		s   StateStore
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendSqlite:
		s, err = NewSqliteStore(cfg.Path)
	case BackendBadger:
		s, err = OpenBadgerStore(cfg.Path)
	case BackendRedis:
		s, err = NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return NewInstrumentedStore(s, backend), nil
}

// DefaultPath returns the conventional on-disk location for a backend under dataDir.
func DefaultPath(backend, dataDir string) string {
	switch backend {
	case BackendBadger:
		return filepath.Join(dataDir, "broadcasts.badger")
	case BackendSqlite, "":
		return filepath.Join(dataDir, "broadcasts.sqlite")
	}
	return ""
}
