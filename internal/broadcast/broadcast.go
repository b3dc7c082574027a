// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package broadcast holds the broadcast record shared by the store, the
// stream controllers and the reaper.
package broadcast

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a broadcast as tracked by the store.
// The reaper does not filter on it.
type Status string

const (
	StatusCreated      Status = "created"
	StatusBroadcasting Status = "broadcasting"
	StatusFinished     Status = "finished"
	StatusFailed       Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusBroadcasting, StatusFinished, StatusFailed:
		return true
	}
	return false
}

// Broadcast is one registered live stream.
//
// CreatedAtMs is assigned once when the record is created and never changes;
// stores order pages by it, which is what lets a sweep stop at the first
// record that is too young.
type Broadcast struct {
	StreamID    string `json:"stream_id"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Status      Status `json:"status"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// New builds a broadcast created at the given instant.
func New(streamID string, createdAt time.Time) Broadcast {
	return Broadcast{
		StreamID:    streamID,
		Status:      StatusCreated,
		CreatedAtMs: createdAt.UnixMilli(),
	}
}

// CreatedAt returns the creation instant.
func (b Broadcast) CreatedAt() time.Time {
	return time.UnixMilli(b.CreatedAtMs)
}

// Age returns how long ago the broadcast was created relative to now.
func (b Broadcast) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-b.CreatedAtMs) * time.Millisecond
}

// Validate checks the invariants every store enforces on write.
func (b Broadcast) Validate() error {
	if !IsSafeStreamID(b.StreamID) {
		return fmt.Errorf("%w: %q", ErrInvalidStreamID, b.StreamID)
	}
	if b.CreatedAtMs <= 0 {
		return fmt.Errorf("%w: created_at_ms=%d", ErrInvalidCreatedAt, b.CreatedAtMs)
	}
	if b.Status != "" && !b.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, b.Status)
	}
	return nil
}

// Less orders broadcasts oldest first; ties break on stream ID so every
// backend pages identically.
func Less(a, b Broadcast) bool {
	if a.CreatedAtMs != b.CreatedAtMs {
		return a.CreatedAtMs < b.CreatedAtMs
	}
	return a.StreamID < b.StreamID
}
