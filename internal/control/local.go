// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"sort"
	"sync"
	"time"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/rs/zerolog"
)

// Delivery is the in-process view of one live stream.
type Delivery struct {
	StreamID  string    `json:"stream_id"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitzero"`
	Reason    string    `json:"reason,omitempty"`
	Forced    bool      `json:"forced,omitempty"`
}

// Active reports whether the delivery is still running.
func (d Delivery) Active() bool { return d.StoppedAt.IsZero() }

// LocalController tracks deliveries in memory. It backs single-process
// deployments and tests.
type LocalController struct {
	mu         sync.Mutex
	deliveries map[string]*Delivery
	now        func() time.Time
	logger     zerolog.Logger
}

func NewLocalController() *LocalController {
	return &LocalController{
		deliveries: make(map[string]*Delivery),
		now:        time.Now,
		logger:     xglog.WithComponent("control.local"),
	}
}

// Start registers a delivery, or restarts a stopped one. An active delivery
// keeps its start time.
func (c *LocalController) Start(streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.deliveries[streamID]; ok && d.Active() {
		return
	}
	c.deliveries[streamID] = &Delivery{StreamID: streamID, StartedAt: c.now()}
	c.logger.Debug().
		Str(xglog.FieldEvent, "control.start").
		Str(xglog.FieldStreamID, streamID).
		Msg("delivery registered")
}

func (c *LocalController) Stop(ctx context.Context, streamID string, force bool, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deliveries[streamID]
	if !ok || !d.Active() {
		c.logger.Debug().
			Str(xglog.FieldEvent, "control.stop.noop").
			Str(xglog.FieldStreamID, streamID).
			Msg("stream not active")
		return nil
	}
	d.StoppedAt = c.now()
	d.Reason = reason
	d.Forced = force
	c.logger.Info().
		Str(xglog.FieldEvent, "control.stop").
		Str(xglog.FieldStreamID, streamID).
		Str(xglog.FieldReason, reason).
		Bool("force", force).
		Msg("delivery stopped")
	return nil
}

// Get returns a copy of the delivery state.
func (c *LocalController) Get(streamID string) (Delivery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.deliveries[streamID]
	if !ok {
		return Delivery{}, false
	}
	return *d, true
}

// Active lists running stream IDs in lexical order.
func (c *LocalController) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.deliveries))
	for id, d := range c.deliveries {
		if d.Active() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
