// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package reaper enforces a maximum lifetime on registered broadcasts.
//
// A Sweeper pages through the store oldest first, stops and deletes every
// broadcast older than the policy's MaxAge and stops at the first one that
// is not. A Runner guarantees sweeps never overlap and a Driver fires the
// Runner on a fixed interval.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StopReason is sent with every stop the reaper issues.
const StopReason = "max_lifetime_exceeded"

// Store is the slice of the broadcast store the sweep needs.
type Store interface {
	Count(ctx context.Context) (int, error)
	// ListPage must order by CreatedAtMs ascending.
	ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error)
	Delete(ctx context.Context, streamID string) error
}

// StreamController stops live delivery. Stop must be idempotent.
type StreamController interface {
	Stop(ctx context.Context, streamID string, force bool, reason string) error
}

// Sweeper runs one age-based sweep per call. It holds no per-sweep state, so
// mutual exclusion is the Runner's job.
type Sweeper struct {
	store  Store
	ctrl   StreamController
	policy atomic.Pointer[Policy]
	now    func() time.Time
	logger zerolog.Logger
	tracer trace.Tracer
}

// Option customises a Sweeper.
type Option func(*Sweeper)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func NewSweeper(store Store, ctrl StreamController, policy Policy, opts ...Option) (*Sweeper, error) {
	if store == nil || ctrl == nil {
		return nil, errors.New("reaper: store and controller are required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	s := &Sweeper{
		store:  store,
		ctrl:   ctrl,
		now:    time.Now,
		logger: xglog.WithComponent("reaper"),
		tracer: telemetry.Tracer("github.com/ManuGH/streamreaper/internal/reaper"),
	}
	s.policy.Store(&policy)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the policy the next sweep will use.
func (s *Sweeper) Policy() Policy {
	return *s.policy.Load()
}

// SetPolicy swaps the policy. A sweep already running keeps the policy it started with.
func (s *Sweeper) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.policy.Store(&p)
	return nil
}

// Sweep performs one full sweep. Per-record failures are counted in the
// result and never abort the sweep; query failures and cancellation do and
// are returned as errors alongside the partial result.
func (s *Sweeper) Sweep(ctx context.Context) (res Result, err error) {
	policy := s.Policy()
	res = Result{
		SweepID:   uuid.NewString(),
		StartedAt: s.now(),
		Policy:    PolicySummary{MaxAge: policy.MaxAge.String(), PageSize: policy.PageSize},
	}

	if policy.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.SweepTimeout)
		defer cancel()
	}

	ctx = xglog.ContextWithSweepID(ctx, res.SweepID)
	logger := xglog.WithContext(ctx, s.logger)

	ctx, span := s.tracer.Start(ctx, "reaper.sweep",
		trace.WithAttributes(telemetry.SweepStartAttributes(res.SweepID, policy.MaxAge, policy.PageSize)...))
	defer func() {
		if res.Termination == "" {
			// only reachable while unwinding a panic
			res.Termination = TerminationPanicked
		}
		res.FinishedAt = s.now()
		span.SetAttributes(telemetry.SweepResultAttributes(string(res.Termination), res.Scanned, res.Expired)...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observeResult(res)
		s.logFinish(logger, res, err)
	}()

	logger.Debug().
		Str(xglog.FieldEvent, "reaper.sweep.start").
		Dur(xglog.FieldMaxAge, policy.MaxAge).
		Int(xglog.FieldPageSize, policy.PageSize).
		Msg("sweep started")

	count, err := s.store.Count(ctx)
	if err != nil {
		return s.abort(res, fmt.Errorf("%w: count: %w", ErrQueryFailed, err))
	}
	res.CountAtStart = count

	// Rows deleted in a page shift later rows left past the cursor; those
	// are picked up by the next sweep.
	offset := 0
	for {
		if ctx.Err() != nil {
			return s.abort(res, ctx.Err())
		}

		page, err := s.store.ListPage(ctx, offset, policy.PageSize)
		res.PagesFetched++
		if err != nil {
			return s.abort(res, fmt.Errorf("%w: list page at offset %d: %w", ErrQueryFailed, offset, err))
		}
		if len(page) == 0 {
			res.Termination = TerminationEmptyPage
			return res, nil
		}

		for _, b := range page {
			if ctx.Err() != nil {
				return s.abort(res, ctx.Err())
			}
			res.Scanned++

			age := b.Age(s.now())
			if age <= policy.MaxAge {
				res.Termination = TerminationEarlyExit
				return res, nil
			}

			s.expire(ctx, logger, b, age, &res)
		}

		offset += policy.PageSize
		if offset >= count {
			res.Termination = TerminationCountReached
			return res, nil
		}
	}
}

// expire stops then deletes one record. Failures are counted in res and
// leave the record for the next sweep.
func (s *Sweeper) expire(ctx context.Context, logger zerolog.Logger, b broadcast.Broadcast, age time.Duration, res *Result) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("reaper.expire", trace.WithAttributes(telemetry.BroadcastAttributes(b.StreamID)...))

	if err := s.ctrl.Stop(ctx, b.StreamID, true, StopReason); err != nil {
		res.StopFailures++
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "reaper.stop.failed").
			Str(xglog.FieldStreamID, b.StreamID).
			Dur(xglog.FieldAge, age).
			Msg("stop failed, record kept for next sweep")
		return
	}

	if err := s.store.Delete(ctx, b.StreamID); err != nil {
		res.DeleteFailures++
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "reaper.delete.failed").
			Str(xglog.FieldStreamID, b.StreamID).
			Dur(xglog.FieldAge, age).
			Msg("delete failed after stop, next sweep retries")
		return
	}

	res.Expired++
	logger.Info().
		Str(xglog.FieldEvent, "reaper.expired").
		Str(xglog.FieldStreamID, b.StreamID).
		Dur(xglog.FieldAge, age).
		Msg("broadcast exceeded max lifetime")
}

func (s *Sweeper) abort(res Result, err error) (Result, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		res.Termination = TerminationCanceled
	} else {
		res.Termination = TerminationQueryFailed
	}
	return res, err
}

func (s *Sweeper) logFinish(logger zerolog.Logger, res Result, err error) {
	var ev *zerolog.Event
	switch {
	case res.Termination == TerminationQueryFailed:
		ev = logger.Error().Err(err)
	case err != nil:
		ev = logger.Warn().Err(err)
	case res.Expired > 0 || res.StopFailures > 0 || res.DeleteFailures > 0:
		ev = logger.Info()
	default:
		ev = logger.Debug()
	}
	ev.Str(xglog.FieldEvent, "reaper.sweep.finish").
		Str(xglog.FieldReason, string(res.Termination)).
		Int("count", res.CountAtStart).
		Int("pages", res.PagesFetched).
		Int("scanned", res.Scanned).
		Int("expired", res.Expired).
		Int("stop_failures", res.StopFailures).
		Int("delete_failures", res.DeleteFailures).
		Dur("duration", res.Duration()).
		Msg("sweep finished")
}
