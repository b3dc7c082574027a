// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package broadcast

import "errors"

var (
	// ErrNotFound is returned by lookups for a stream ID the store does not hold.
	ErrNotFound = errors.New("broadcast not found")

	// ErrInvalidStreamID is returned when a stream ID fails IsSafeStreamID.
	ErrInvalidStreamID = errors.New("invalid stream id")

	// ErrInvalidCreatedAt is returned for records without a creation time.
	ErrInvalidCreatedAt = errors.New("invalid creation time")

	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invalid broadcast status")
)
