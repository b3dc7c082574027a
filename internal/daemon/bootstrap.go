// SPDX-License-Identifier: MIT

// Package daemon wires the store, stream controller, reaper and admin API
// together and manages their lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/streamreaper/internal/api"
	"github.com/ManuGH/streamreaper/internal/broadcast/store"
	"github.com/ManuGH/streamreaper/internal/config"
	"github.com/ManuGH/streamreaper/internal/control"
	"github.com/ManuGH/streamreaper/internal/health"
	"github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/metrics"
	"github.com/ManuGH/streamreaper/internal/reaper"
	"github.com/ManuGH/streamreaper/internal/telemetry"
	"github.com/ManuGH/streamreaper/internal/version"
)

// staleSweepFactor is how many intervals may pass before the last sweep is
// reported as stale by readiness.
const staleSweepFactor = 3

// Core holds the components needed to run sweeps.
type Core struct {
	Store      store.StateStore
	Controller control.StreamController
	Sweeper    *reaper.Sweeper
	Runner     *reaper.Runner

	ctrlCloser io.Closer
}

// StoreConfig maps the store section onto the store factory config.
func StoreConfig(cfg config.AppConfig) store.Config {
	return store.Config{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		Redis: store.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		},
	}
}

// ControlConfig maps the control section onto the controller factory config.
func ControlConfig(cfg config.AppConfig) control.Config {
	c := cfg.Control
	return control.Config{
		Backend: c.Backend,
		HTTP: control.HTTPConfig{
			BaseURL:             c.HTTP.BaseURL,
			Token:               c.HTTP.Token,
			Timeout:             c.HTTP.Timeout,
			RPS:                 c.HTTP.RPS,
			Burst:               c.HTTP.Burst,
			BreakerThreshold:    c.Breaker.Threshold,
			BreakerResetTimeout: c.Breaker.ResetTimeout,
		},
		NATS: control.NATSConfig{
			URL:     c.NATS.URL,
			Subject: c.NATS.Subject,
			Timeout: c.NATS.Timeout,
		},
	}
}

// BuildCore opens the store and controller and builds the sweeper and runner.
func BuildCore(cfg config.AppConfig) (*Core, error) {
	st, err := store.OpenStore(StoreConfig(cfg))
	if err != nil {
		return nil, err
	}
	ctrl, closer, err := control.Open(ControlConfig(cfg))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open controller: %w", err)
	}
	sw, err := reaper.NewSweeper(st, ctrl, PolicyFromConfig(cfg.Reaper))
	if err != nil {
		_ = closer.Close()
		_ = st.Close()
		return nil, err
	}
	return &Core{
		Store:      st,
		Controller: ctrl,
		Sweeper:    sw,
		Runner:     reaper.NewRunner(sw),
		ctrlCloser: closer,
	}, nil
}

// Close releases the controller connection, then the store.
func (c *Core) Close() error {
	return errors.Join(c.ctrlCloser.Close(), c.Store.Close())
}

// Build wires the full daemon for cfg. holder may be nil to disable hot reload.
func Build(ctx context.Context, cfg config.AppConfig, holder *config.ConfigHolder) (*App, error) {
	logger := log.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	core, err := BuildCore(cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("store", core.Store.Ping))
	hm.RegisterChecker(health.NewSweepChecker(core.Runner.LastSweep, staleSweepFactor*cfg.Reaper.Interval))

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.LogService
	}
	apiSrv := api.New(api.Deps{
		Store:          core.Store,
		Runner:         core.Runner,
		Health:         hm,
		Token:          cfg.API.Token,
		SweepRateLimit: cfg.API.SweepRateLimit,
		TracingService: tracing,
		ServeMetrics:   cfg.Metrics.ListenAddr == "",
		Deliveries:     localDeliveries(core.Controller),
	})

	deps := Deps{
		Logger:     logger,
		APIHandler: apiSrv.Handler(),
	}
	if cfg.Metrics.ListenAddr != "" {
		deps.MetricsHandler = metrics.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	if cfg.Reaper.Enabled {
		driver, err := reaper.NewDriver(core.Runner, cfg.Reaper.Interval)
		if err != nil {
			_ = core.Close()
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		deps.Scheduler = driver
	} else {
		logger.Warn().Msg("reaper disabled; sweeps run only on manual trigger")
	}

	mgr, err := NewManager(DefaultServerConfig(cfg.API.ListenAddr), deps)
	if err != nil {
		_ = core.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	// LIFO: the scheduler hook registered in Start runs first, then the store
	// closes, then traces flush.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("core", func(context.Context) error { return core.Close() })

	metrics.SetBuildInfo(cfg.Version, version.Commit)

	return NewApp(logger, mgr, holder, core.Sweeper), nil
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// localDeliveries exposes the in-process controller to the API so registered
// broadcasts have a delivery to stop. Remote backends track their own.
func localDeliveries(c control.StreamController) api.DeliveryTracker {
	if l, ok := control.Local(c); ok {
		return l
	}
	return nil
}
