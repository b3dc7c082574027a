// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/reaper"
)

type sweepResponse struct {
	Result reaper.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
}

// handleTriggerSweep runs one manual sweep and returns its result.
// Concurrent triggers share one sweep; a scheduled sweep in flight yields 409.
func (s *Server) handleTriggerSweep(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithContext(r.Context(), s.logger)

	res, err := s.deps.Runner.Trigger(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sweepResponse{Result: res})
	case errors.Is(err, reaper.ErrSweepInProgress):
		writeError(w, r, http.StatusConflict, "sweep_in_progress", "a sweep is already running")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client went away or the sweep hit its timeout.
		logger.Warn().Err(err).Str(xglog.FieldEvent, "api.sweep.aborted").Msg("manual sweep aborted")
		writeJSON(w, http.StatusServiceUnavailable, sweepResponse{Result: res, Error: err.Error()})
	default:
		logger.Error().Err(err).Str(xglog.FieldEvent, "api.sweep.failed").Msg("manual sweep failed")
		writeJSON(w, http.StatusServiceUnavailable, sweepResponse{Result: res, Error: err.Error()})
	}
}

type statusResponse struct {
	reaper.Status
	ActiveDeliveries []string `json:"active_deliveries,omitempty"`
}

func (s *Server) handleSweepStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.deps.Runner.Status()}
	if s.deps.Deliveries != nil {
		resp.ActiveDeliveries = s.deps.Deliveries.Active()
	}
	writeJSON(w, http.StatusOK, resp)
}
