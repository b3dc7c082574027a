// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/streamreaper/internal/config"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/reaper"
	"github.com/rs/zerolog"
)

// PolicyTarget receives hot-reloaded reaper policies. reaper.Sweeper implements it.
type PolicyTarget interface {
	SetPolicy(p reaper.Policy) error
}

// App owns the long-lived runtime lifecycle (config watcher, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	policy       PolicyTarget
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder and policy may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, policy PolicyTarget) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		policy:       policy,
		reloadSignal: syscall.SIGHUP,
	}
}

// PolicyFromConfig maps the reaper section onto a sweep policy.
func PolicyFromConfig(r config.ReaperConfig) reaper.Policy {
	return reaper.Policy{
		MaxAge:       r.MaxAge,
		PageSize:     r.PageSize,
		SweepTimeout: r.SweepTimeout,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// Best effort: a missing watcher leaves SIGHUP as the reload path.
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		if a.policy != nil {
			applyCh := make(chan config.AppConfig, 1)
			a.cfgHolder.RegisterListener(applyCh)
			g.Go(func() error { return a.followPolicy(ctx, applyCh) })
		}
		if a.reloadSignal != nil {
			g.Go(func() error { return a.reloadOnSignal(ctx) })
		}
	}

	g.Go(func() error { return a.manager.Start(ctx) })

	err := g.Wait()
	if a.cfgHolder != nil {
		a.cfgHolder.Wait()
	}
	return err
}

// followPolicy applies the reaper section of every reloaded config.
func (a *App) followPolicy(ctx context.Context, applyCh <-chan config.AppConfig) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-applyCh:
			a.applyPolicy(cfg.Reaper)
		}
	}
}

// reloadOnSignal reloads the config file each time reloadSignal arrives.
func (a *App) reloadOnSignal(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.reloadSignal)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			a.logger.Info().
				Str(xglog.FieldEvent, "config.reload_signal").
				Str("signal", a.reloadSignal.String()).
				Msg("reloading config on signal")
			if err := a.cfgHolder.Reload(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("config reload failed")
			}
		}
	}
}

func (a *App) applyPolicy(r config.ReaperConfig) {
	p := PolicyFromConfig(r)
	if err := a.policy.SetPolicy(p); err != nil {
		a.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "reaper.policy_rejected").
			Msg("reloaded reaper policy rejected, keeping current policy")
		return
	}
	a.logger.Info().
		Str(xglog.FieldEvent, "reaper.policy_applied").
		Dur(xglog.FieldMaxAge, p.MaxAge).
		Int(xglog.FieldPageSize, p.PageSize).
		Dur("sweep_timeout", p.SweepTimeout).
		Msg("reaper policy reloaded")
}
