// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists broadcast records. Every backend pages records
// ordered by (CreatedAtMs, StreamID) ascending.
package store

import (
	"context"

	"github.com/ManuGH/streamreaper/internal/broadcast"
)

// StateStore is the broadcast record store shared by the admin API and the reaper.
type StateStore interface {
	// Put inserts or updates a record. CreatedAtMs of an existing record is kept.
	Put(ctx context.Context, b broadcast.Broadcast) error
	// Get returns broadcast.ErrNotFound for unknown IDs.
	Get(ctx context.Context, streamID string) (broadcast.Broadcast, error)
	// Count returns the number of records currently held.
	Count(ctx context.Context) (int, error)
	// ListPage returns at most limit records starting at offset, oldest first.
	// An empty slice signals that no records remain at or after offset.
	ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error)
	// Delete removes a record. Deleting an unknown ID succeeds.
	Delete(ctx context.Context, streamID string) error
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	Close() error
}

func normalizePage(offset, limit int) (int, int, bool) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return offset, 0, false
	}
	return offset, limit, true
}
