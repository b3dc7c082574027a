// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import "errors"

var (
	// ErrSweepInProgress is returned by Runner.Run when another sweep holds the guard.
	ErrSweepInProgress = errors.New("sweep already in progress")
	// ErrQueryFailed wraps Count/ListPage failures that abort a sweep.
	ErrQueryFailed = errors.New("broadcast query failed")
	// ErrInvalidPolicy is returned for non-positive maxAge/pageSize.
	ErrInvalidPolicy = errors.New("invalid reaper policy")
	// ErrSweepPanicked is returned by the Runner when a sweep panicked.
	ErrSweepPanicked = errors.New("sweep panicked")
	// ErrAlreadyStarted is returned by Driver.Start on a running driver.
	ErrAlreadyStarted = errors.New("reaper driver already started")
)
