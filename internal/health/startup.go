// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/streamreaper/internal/config"
	"github.com/ManuGH/streamreaper/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the daemon starts.
// Config.Validate covers syntax; these checks touch the filesystem.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	switch cfg.Store.Backend {
	case "sqlite", "badger":
		if err := checkWritableDir(logger, filepath.Dir(cfg.Store.Path)); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
		warnIfTemp(logger, cfg.Store.Path)
	case "memory":
		logger.Warn().
			Str(log.FieldBackend, cfg.Store.Backend).
			Msg("in-memory store; broadcast records are lost on restart")
	}

	if cfg.Control.Backend == "local" {
		logger.Warn().
			Str(log.FieldBackend, cfg.Control.Backend).
			Msg("local stream controller; stops only affect this process")
	}

	if cfg.API.Token == "" {
		logger.Warn().Msg("api.token not set; mutating endpoints are unauthenticated")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkWritableDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	f, err := os.CreateTemp(path, ".write_test")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %w)", path, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	logger.Info().Str(log.FieldPath, path).Msg("store directory is writable")
	return nil
}

func warnIfTemp(logger zerolog.Logger, path string) {
	tempDir := filepath.Clean(os.TempDir())
	p := filepath.Clean(path)
	if tempDir != "." && strings.HasPrefix(p, tempDir+string(filepath.Separator)) {
		logger.Warn().
			Str(log.FieldPath, path).
			Msg("store is under the temp directory; records may be lost on reboot")
	}
}
