// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"golang.org/x/sync/singleflight"
)

// Trigger labels who asked for a sweep.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Status is a point-in-time view of the runner for the admin API and health checks.
type Status struct {
	InFlight  bool    `json:"in_flight"`
	Last      *Result `json:"last,omitempty"`
	LastError string  `json:"last_error,omitempty"`
}

type outcome struct {
	res Result
	err error
}

// Runner serialises sweeps. Run never blocks on another sweep: it returns
// ErrSweepInProgress instead.
type Runner struct {
	sweeper *Sweeper

	mu       sync.Mutex
	inFlight atomic.Bool
	last     atomic.Pointer[outcome]

	group singleflight.Group
}

func NewRunner(sweeper *Sweeper) *Runner {
	return &Runner{sweeper: sweeper}
}

// Sweeper exposes the underlying sweeper for policy reloads.
func (r *Runner) Sweeper() *Sweeper { return r.sweeper }

// Run performs one sweep unless one is already running.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	return r.run(ctx, TriggerScheduled)
}

func (r *Runner) run(ctx context.Context, trigger Trigger) (res Result, err error) {
	if !r.mu.TryLock() {
		sweepsSkipped.WithLabelValues(string(trigger)).Inc()
		r.sweeper.logger.Debug().
			Str(xglog.FieldEvent, "reaper.sweep.skipped").
			Str("trigger", string(trigger)).
			Msg("sweep already in progress")
		return Result{}, ErrSweepInProgress
	}
	defer r.mu.Unlock()

	r.inFlight.Store(true)
	sweepInFlight.Set(1)
	defer func() {
		r.inFlight.Store(false)
		sweepInFlight.Set(0)
	}()

	defer func() {
		if p := recover(); p != nil {
			res = Result{Termination: TerminationPanicked, FinishedAt: r.sweeper.now()}
			err = fmt.Errorf("%w: %v", ErrSweepPanicked, p)
			r.sweeper.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "reaper.sweep.panic").
				Str("trigger", string(trigger)).
				Str("stack", string(debug.Stack())).
				Msg("sweep panicked")
		}
		r.last.Store(&outcome{res: res, err: err})
	}()

	return r.sweeper.Sweep(ctx)
}

// Trigger runs a manual sweep. Concurrent manual callers share one sweep and
// its result. The sweep itself is detached from ctx so a caller that gives up
// does not cancel the sweep for the others; it only stops waiting.
func (r *Runner) Trigger(ctx context.Context) (Result, error) {
	ch := r.group.DoChan("sweep", func() (interface{}, error) {
		res, err := r.run(context.WithoutCancel(ctx), TriggerManual)
		return res, err
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case out := <-ch:
		res, _ := out.Val.(Result)
		return res, out.Err
	}
}

// Status reports whether a sweep is running and how the last one ended.
func (r *Runner) Status() Status {
	st := Status{InFlight: r.inFlight.Load()}
	if o := r.last.Load(); o != nil {
		res := o.res
		st.Last = &res
		if o.err != nil {
			st.LastError = o.err.Error()
		}
	}
	return st
}

// LastFinished returns when the last sweep finished, or zero.
func (r *Runner) LastFinished() time.Time {
	if o := r.last.Load(); o != nil {
		return o.res.FinishedAt
	}
	return time.Time{}
}

// LastSweep returns when the last sweep finished and its error text, if any.
func (r *Runner) LastSweep() (time.Time, string) {
	o := r.last.Load()
	if o == nil {
		return time.Time{}, ""
	}
	if o.err != nil {
		return o.res.FinishedAt, o.err.Error()
	}
	return o.res.FinishedAt, ""
}
