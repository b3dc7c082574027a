// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the admin HTTP API: probes, broadcast registration and
// manual sweeps.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/streamreaper/internal/api/middleware"
	"github.com/ManuGH/streamreaper/internal/broadcast/store"
	"github.com/ManuGH/streamreaper/internal/control"
	"github.com/ManuGH/streamreaper/internal/health"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/metrics"
	"github.com/ManuGH/streamreaper/internal/reaper"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SweepRunner is the part of reaper.Runner the API drives.
type SweepRunner interface {
	Trigger(ctx context.Context) (reaper.Result, error)
	Status() reaper.Status
}

// DeliveryTracker records live deliveries for the in-process stop backend.
type DeliveryTracker interface {
	Start(streamID string)
	Get(streamID string) (control.Delivery, bool)
	Active() []string
}

// Deps are the collaborators of the API server.
type Deps struct {
	Store  store.StateStore
	Runner SweepRunner
	Health *health.Manager
	// Deliveries, when set, is told about every registered broadcast.
	Deliveries DeliveryTracker

	// Token guards mutating endpoints; empty disables auth.
	Token string
	// SweepRateLimit caps manual sweeps per minute per client; zero disables the limit.
	SweepRateLimit int
	// TracingService names HTTP spans; empty disables tracing.
	TracingService string
	// ServeMetrics mounts /metrics on the API router.
	ServeMetrics bool
}

// Server is the admin API.
type Server struct {
	deps   Deps
	router chi.Router
	logger zerolog.Logger
	now    func() time.Time
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: xglog.WithComponent("api"),
		now:    time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.deps.TracingService,
		EnableLogging:  true,
	})

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	if s.deps.ServeMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/broadcasts", func(r chi.Router) {
			r.Get("/", s.handleListBroadcasts)
			r.Get("/{id}", s.handleGetBroadcast)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireToken(s.deps.Token))
				r.Post("/", s.handleCreateBroadcast)
				r.Delete("/{id}", s.handleDeleteBroadcast)
			})
		})
		r.Route("/reaper", func(r chi.Router) {
			r.Get("/status", s.handleSweepStatus)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireToken(s.deps.Token))
				if s.deps.SweepRateLimit > 0 {
					r.Use(middleware.SweepRateLimit(s.deps.SweepRateLimit))
				}
				r.Post("/sweep", s.handleTriggerSweep)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})
	return r
}
