// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Driver fires the Runner on a fixed interval.
type Driver struct {
	runner   *Runner
	schedule cron.Schedule
	interval time.Duration
	logger   zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// DriverOption customises a Driver.
type DriverOption func(*Driver)

// WithSchedule replaces the interval schedule. Tests use it for sub-second ticks.
func WithSchedule(s cron.Schedule) DriverOption {
	return func(d *Driver) { d.schedule = s }
}

// WithDriverLogger replaces the driver's component logger.
func WithDriverLogger(l zerolog.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// NewDriver builds a driver. interval must be at least MinInterval.
func NewDriver(runner *Runner, interval time.Duration, opts ...DriverOption) (*Driver, error) {
	d := &Driver{
		runner:   runner,
		interval: interval,
		logger:   xglog.WithComponent("reaper.driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.schedule == nil {
		if interval < MinInterval {
			return nil, fmt.Errorf("%w: interval must be at least %s, got %s", ErrInvalidPolicy, MinInterval, interval)
		}
		d.schedule = cron.Every(interval)
	}
	return d, nil
}

// Start registers the repeating sweep and returns. Once ctx is done no new
// sweep begins, but one already running completes: only Stop ends the
// schedule, and SweepTimeout bounds a single sweep.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return ErrAlreadyStarted
	}

	cl := cronLogger{logger: d.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(d.schedule, cron.FuncJob(func() { d.tick(ctx) }))
	c.Start()
	d.cron = c

	d.logger.Info().
		Str(xglog.FieldEvent, "reaper.driver.started").
		Dur("interval", d.interval).
		Msg("reaper scheduled")
	return nil
}

func (d *Driver) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// errors are logged by the sweeper; a failed sweep never stops the schedule
	_, err := d.runner.Run(context.WithoutCancel(ctx))
	if errors.Is(err, ErrSweepInProgress) {
		d.logger.Debug().
			Str(xglog.FieldEvent, "reaper.tick.skipped").
			Msg("tick skipped, manual sweep in flight")
	}
}

// Stop cancels the schedule and waits for an in-flight sweep until ctx expires.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
		d.logger.Info().Str(xglog.FieldEvent, "reaper.driver.stopped").Msg("reaper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reaper stop: waiting for in-flight sweep: %w", ctx.Err())
	}
}

// cronLogger adapts zerolog to cron.Logger. cron reports overlapping ticks
// dropped by SkipIfStillRunning as Info("skip").
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		sweepsSkipped.WithLabelValues(string(TriggerScheduled)).Inc()
	}
	l.logger.Debug().Fields(keysAndValues).Str(xglog.FieldEvent, "reaper.cron."+msg).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Str(xglog.FieldEvent, "reaper.cron.error").Msg(msg)
}
