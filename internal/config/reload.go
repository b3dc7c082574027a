// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ConfigHolder holds configuration with atomic reloading capability.
// Only the reaper policy (maxAge, pageSize, sweepTimeout) is applied live by
// the daemon; other changes are logged as requiring a restart.
type ConfigHolder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger
	debounce   time.Duration
	wg         sync.WaitGroup

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewConfigHolder creates a new configuration holder with initial config.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	return &ConfigHolder{
		current:    initial,
		loader:     loader,
		configPath: configPath,
		logger:     xglog.WithComponent("config"),
		debounce:   500 * time.Millisecond,
	}
}

// Get returns the current configuration (thread-safe read).
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration from file. Load validates, so an invalid file
// leaves the current configuration untouched.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file until ctx is done. Without a config
// file this is a no-op.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors and renameio replace the file, which
	// drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(h.configPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str(xglog.FieldPath, h.configPath).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go h.watchLoop(ctx)
	return nil
}

// watchLoop coalesces bursts of events into one reload after the file has
// been quiet for h.debounce. Reloads run on this goroutine, so none is in
// flight once Wait returns.
func (h *ConfigHolder) watchLoop(ctx context.Context) {
	defer h.wg.Done()
	defer func() { _ = h.watcher.Close() }()

	quiet := time.NewTimer(h.debounce)
	quiet.Stop()
	defer quiet.Stop()

	target := filepath.Clean(h.configPath)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			h.logger.Debug().Str(xglog.FieldEvent, "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
			quiet.Reset(h.debounce)

		case <-quiet.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.auto_reload_failed").Msg("automatic config reload failed")
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Wait blocks until the watch loop has exited.
func (h *ConfigHolder) Wait() {
	h.wg.Wait()
}

// RegisterListener registers a channel to receive config reload notifications.
// Sends never block; a full channel misses the update.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *ConfigHolder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs what changed and whether it applies live.
func (h *ConfigHolder) logChanges(old, newCfg AppConfig) {
	if old.Reaper.MaxAge != newCfg.Reaper.MaxAge {
		h.logger.Info().Dur("old", old.Reaper.MaxAge).Dur("new", newCfg.Reaper.MaxAge).Msg("config changed: reaper.maxAge")
	}
	if old.Reaper.PageSize != newCfg.Reaper.PageSize {
		h.logger.Info().Int("old", old.Reaper.PageSize).Int("new", newCfg.Reaper.PageSize).Msg("config changed: reaper.pageSize")
	}
	if old.Reaper.SweepTimeout != newCfg.Reaper.SweepTimeout {
		h.logger.Info().Dur("old", old.Reaper.SweepTimeout).Dur("new", newCfg.Reaper.SweepTimeout).Msg("config changed: reaper.sweepTimeout")
	}

	for _, field := range RestartRequired(old, newCfg) {
		h.logger.Warn().
			Str(xglog.FieldEvent, "config.restart_required").
			Str("field", field).
			Msg("config change takes effect after restart")
	}
}

// RestartRequired lists changed fields the running process does not pick up.
func RestartRequired(old, newCfg AppConfig) []string {
	var out []string
	add := func(changed bool, field string) {
		if changed {
			out = append(out, field)
		}
	}
	add(old.Reaper.Enabled != newCfg.Reaper.Enabled, "reaper.enabled")
	add(old.Reaper.Interval != newCfg.Reaper.Interval, "reaper.interval")
	add(old.Store != newCfg.Store, "store")
	add(old.Control != newCfg.Control, "control")
	add(old.API != newCfg.API, "api")
	add(old.Metrics != newCfg.Metrics, "metrics")
	add(old.Telemetry != newCfg.Telemetry, "telemetry")
	add(old.LogLevel != newCfg.LogLevel, "logLevel")
	return out
}
