// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/ManuGH/streamreaper/internal/control"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 64 << 10
)

type listResponse struct {
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
	Items  []broadcast.Broadcast `json:"items"`
}

// broadcastResponse carries the in-process delivery state when the local
// stop backend is in use.
type broadcastResponse struct {
	broadcast.Broadcast
	Delivery *control.Delivery `json:"delivery,omitempty"`
}

// createRequest registers a broadcast. CreatedAtMs zero means now.
type createRequest struct {
	StreamID    string           `json:"stream_id"`
	Name        string           `json:"name,omitempty"`
	Type        string           `json:"type,omitempty"`
	Status      broadcast.Status `json:"status,omitempty"`
	CreatedAtMs int64            `json:"created_at_ms,omitempty"`
}

func parseNonNegative(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func (s *Server) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	offset, err := parseNonNegative(r, "offset", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	limit, err := parseNonNegative(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	switch {
	case limit == 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	total, err := s.deps.Store.Count(r.Context())
	if err != nil {
		s.storeError(w, r, "count", err)
		return
	}
	items, err := s.deps.Store.ListPage(r.Context(), offset, limit)
	if err != nil {
		s.storeError(w, r, "list", err)
		return
	}
	if items == nil {
		items = []broadcast.Broadcast{}
	}
	writeJSON(w, http.StatusOK, listResponse{Total: total, Offset: offset, Limit: limit, Items: items})
}

func (s *Server) handleGetBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !broadcast.IsSafeStreamID(id) {
		writeError(w, r, http.StatusBadRequest, "invalid_stream_id", "stream id contains unsupported characters")
		return
	}
	b, err := s.deps.Store.Get(r.Context(), id)
	if errors.Is(err, broadcast.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", "broadcast not found")
		return
	}
	if err != nil {
		s.storeError(w, r, "get", err)
		return
	}
	resp := broadcastResponse{Broadcast: b}
	if s.deps.Deliveries != nil {
		if d, ok := s.deps.Deliveries.Get(id); ok {
			resp.Delivery = &d
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	b := broadcast.New(req.StreamID, s.now())
	b.Name = req.Name
	b.Type = req.Type
	if req.Status != "" {
		b.Status = req.Status
	}
	if req.CreatedAtMs != 0 {
		b.CreatedAtMs = req.CreatedAtMs
	}
	if err := b.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_broadcast", err.Error())
		return
	}

	if err := s.deps.Store.Put(r.Context(), b); err != nil {
		s.storeError(w, r, "put", err)
		return
	}
	// Re-read: an existing record keeps its original creation time.
	stored, err := s.deps.Store.Get(r.Context(), b.StreamID)
	if err != nil {
		s.storeError(w, r, "get", err)
		return
	}

	if s.deps.Deliveries != nil {
		s.deps.Deliveries.Start(stored.StreamID)
	}

	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "broadcast.registered").
		Str(xglog.FieldStreamID, stored.StreamID).
		Int64("created_at_ms", stored.CreatedAtMs).
		Msg("broadcast registered")
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleDeleteBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !broadcast.IsSafeStreamID(id) {
		writeError(w, r, http.StatusBadRequest, "invalid_stream_id", "stream id contains unsupported characters")
		return
	}
	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		s.storeError(w, r, "delete", err)
		return
	}
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "broadcast.deleted").
		Str(xglog.FieldStreamID, id).
		Msg("broadcast deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "api.store_failed").
		Str("op", op).
		Msg("store operation failed")
	writeError(w, r, http.StatusServiceUnavailable, "store_unavailable", "broadcast store unavailable")
}
