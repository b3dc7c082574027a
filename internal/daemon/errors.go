// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// Wiring errors from Deps.Validate and NewApp.
var (
	ErrMissingLogger     = errors.New("daemon: logger is required")
	ErrMissingAPIHandler = errors.New("daemon: admin API handler is required")
	ErrMissingManager    = errors.New("daemon: manager is required")
)

// Lifecycle errors from Manager.
var (
	ErrManagerNotStarted = errors.New("daemon: manager not started")
	ErrManagerStarted    = errors.New("daemon: manager already started")
)
