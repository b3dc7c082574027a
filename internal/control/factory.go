// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
	BackendNATS  = "nats"
)

// Config selects the stop transport.
type Config struct {
	Backend string
	HTTP    HTTPConfig
	NATS    NATSConfig
}

// Open builds the configured controller wrapped with metrics. The returned
// closer releases transport resources and is never nil.
func Open(cfg Config) (StreamController, io.Closer, error) {
	var (
		c      StreamController
		closer io.Closer = nopCloser{}
	)
	switch cfg.Backend {
	case BackendLocal, "":
		c = NewLocalController()
	case BackendHTTP:
		h, err := NewHTTPController(cfg.HTTP)
		if err != nil {
			return nil, nil, err
		}
		c = h
	case BackendNATS:
		n, err := DialNATS(cfg.NATS)
		if err != nil {
			return nil, nil, err
		}
		c, closer = n, n
	default:
		return nil, nil, fmt.Errorf("unknown control backend: %s", cfg.Backend)
	}
	backend := cfg.Backend
	if backend == "" {
		backend = BackendLocal
	}
	return NewInstrumented(c, backend), closer, nil
}

// Local returns the in-process controller behind c, if that is what Open built.
func Local(c StreamController) (*LocalController, bool) {
	for {
		switch v := c.(type) {
		case *LocalController:
			return v, true
		case interface{ Unwrap() StreamController }:
			c = v.Unwrap()
		default:
			return nil, false
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
