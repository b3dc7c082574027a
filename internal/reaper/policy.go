// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import (
	"fmt"
	"time"
)

// Defaults for a production media server.
const (
	DefaultInterval = 30 * time.Second
	DefaultMaxAge   = 10 * time.Minute
	DefaultPageSize = 100
	// MinInterval is the finest schedule granularity the driver supports.
	MinInterval = time.Second
)

// Policy is the age-based expiry rule applied by one sweep.
type Policy struct {
	// MaxAge is the lifetime after which a broadcast is reaped (strictly greater).
	MaxAge time.Duration
	// PageSize is the ListPage limit.
	PageSize int
	// SweepTimeout bounds one sweep; zero means unbounded.
	SweepTimeout time.Duration
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return Policy{MaxAge: DefaultMaxAge, PageSize: DefaultPageSize}
}

func (p Policy) Validate() error {
	if p.MaxAge <= 0 {
		return fmt.Errorf("%w: maxAge must be positive, got %s", ErrInvalidPolicy, p.MaxAge)
	}
	if p.PageSize <= 0 {
		return fmt.Errorf("%w: pageSize must be positive, got %d", ErrInvalidPolicy, p.PageSize)
	}
	if p.SweepTimeout < 0 {
		return fmt.Errorf("%w: sweepTimeout must not be negative, got %s", ErrInvalidPolicy, p.SweepTimeout)
	}
	return nil
}
