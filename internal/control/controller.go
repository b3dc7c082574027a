// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package control stops live delivery of broadcasts on the media plane.
// Every implementation treats stopping an unknown or already stopped
// stream as success.
package control

import (
	"context"
	"errors"
)

// StreamController stops delivery for one stream. Implementations must be idempotent.
type StreamController interface {
	Stop(ctx context.Context, streamID string, force bool, reason string) error
}

var (
	// ErrUnavailable marks transport failures and an open circuit breaker.
	ErrUnavailable = errors.New("stream controller unavailable")
	// ErrRejected marks a definitive refusal by the media plane.
	ErrRejected = errors.New("stop rejected by media plane")
	// ErrInvalidStreamID is returned before any transport call is made.
	ErrInvalidStreamID = errors.New("invalid stream id")
)
