// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/rs/zerolog"
)

// ShutdownHook releases one resource during shutdown.
type ShutdownHook func(ctx context.Context) error

// Manager owns the process lifecycle: HTTP listeners, the reaper scheduler and
// the ordered release of everything registered as a shutdown hook.
type Manager interface {
	// Start binds every listener, starts the scheduler and blocks until ctx
	// ends or a server fails. It always shuts down before returning.
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	// RegisterShutdownHook adds a hook; hooks run last-registered first.
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type namedServer struct {
	name string
	srv  *http.Server
}

type manager struct {
	cfg    ServerConfig
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	started  bool
	stopping bool
	servers  []namedServer
	hooks    []namedHook
}

// NewManager validates deps and returns an unstarted Manager.
func NewManager(cfg ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str(xglog.FieldComponent, "manager").Logger(),
	}, nil
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerStarted
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str(xglog.FieldEvent, "daemon.manager.start").
		Str("listen", m.cfg.ListenAddr).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("starting daemon manager")

	// Bind synchronously so a taken port fails Start instead of a goroutine.
	serveErr := make(chan error, 2)
	if err := m.serve("API server", m.apiServer(), serveErr); err != nil {
		return m.shutdownAfter(ctx, err)
	}
	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		if err := m.serve("metrics server", m.metricsServer(), serveErr); err != nil {
			return m.shutdownAfter(ctx, err)
		}
	}

	if s := m.deps.Scheduler; s != nil {
		if err := s.Start(ctx); err != nil {
			return m.shutdownAfter(ctx, fmt.Errorf("start scheduler: %w", err))
		}
		// registered last, runs first: no sweep starts while the store closes
		m.RegisterShutdownHook("reaper_driver", s.Stop)
	}

	select {
	case err := <-serveErr:
		return m.shutdownAfter(ctx, err)
	case <-ctx.Done():
		m.logger.Info().Str(xglog.FieldEvent, "daemon.manager.signal").Msg("shutdown signal received")
		return m.shutdownAfter(ctx, nil)
	}
}

func (m *manager) apiServer() *http.Server {
	return &http.Server{
		Addr:              m.cfg.ListenAddr,
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		MaxHeaderBytes:    m.cfg.MaxHeaderBytes,
	}
}

func (m *manager) metricsServer() *http.Server {
	return &http.Server{
		Addr:              m.deps.MetricsAddr,
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
	}
}

// serve binds srv and serves it in the background. Errors after the bind
// are reported on errs.
func (m *manager) serve(name string, srv *http.Server, errs chan<- error) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		m.logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.listen.failed").Str("server", name).Msg("listen failed")
		return fmt.Errorf("%s: %w", name, err)
	}

	m.mu.Lock()
	m.servers = append(m.servers, namedServer{name: name, srv: srv})
	m.mu.Unlock()

	m.logger.Info().Str("server", name).Str("addr", ln.Addr().String()).Msg("listening")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("%s: %w", name, err)
		}
	}()
	return nil
}

// shutdownAfter runs Shutdown on a context detached from ctx, so a cancelled
// parent still gets a bounded graceful shutdown.
func (m *manager) shutdownAfter(ctx context.Context, cause error) error {
	if cause != nil {
		m.logger.Error().Err(cause).Str(xglog.FieldEvent, "daemon.manager.failed").Msg("shutting down after error")
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()
	if err := m.Shutdown(sctx); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Shutdown stops the servers, then runs hooks LIFO. A second call is a no-op.
func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	case m.stopping:
		m.mu.Unlock()
		return nil
	}
	m.stopping = true
	servers := append([]namedServer(nil), m.servers...)
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, s := range servers {
		if err := s.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s shutdown: %w", s.name, err))
		}
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.hook(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str("hook", h.name).Dur("took", time.Since(start)).Msg("shutdown hook finished")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	m.logger.Info().Str(xglog.FieldEvent, "daemon.manager.stopped").Msg("daemon manager stopped")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}
