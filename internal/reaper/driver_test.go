// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// every is a sub-second cron.Schedule; cron.Every rounds to whole seconds.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestNewDriver_RejectsSubSecondInterval(t *testing.T) {
	rec := &recorder{}
	r := NewRunner(newTestSweeper(t, newFakeStore(rec), newFakeController(rec), DefaultPolicy()))

	_, err := NewDriver(r, 500*time.Millisecond, WithDriverLogger(zerolog.Nop()))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	d, err := NewDriver(r, time.Second, WithDriverLogger(zerolog.Nop()))
	require.NoError(t, err)
	assert.NotNil(t, d.schedule)
}

func TestDriver_SweepsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	st := newFakeStore(rec)
	ctrl := newFakeController(rec)
	// real clock: records added after start must be picked up by later ticks
	s, err := NewSweeper(st, ctrl, Policy{MaxAge: time.Millisecond, PageSize: 10}, quiet())
	require.NoError(t, err)
	d, err := NewDriver(NewRunner(s), time.Second, WithSchedule(every(10*time.Millisecond)), WithDriverLogger(zerolog.Nop()))
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	require.ErrorIs(t, d.Start(context.Background()), ErrAlreadyStarted)

	for i := 0; i < 3; i++ {
		st.mu.Lock()
		st.records = append(st.records, broadcast.New(fmt.Sprintf("late-%d", i), time.Now().Add(-time.Hour)))
		st.mu.Unlock()
		require.Eventually(t, func() bool { return len(st.ids()) == 0 }, 2*time.Second, 5*time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, d.Stop(ctx), "second stop is a no-op")
}

func TestDriver_StopWaitsForInFlightSweep(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	st := newFakeStore(rec, broadcast.New("old", time.Now().Add(-time.Hour)))
	ctrl := newFakeController(rec)
	ctrl.block = make(chan struct{})
	ctrl.entered = make(chan struct{}, 1)
	s, err := NewSweeper(st, ctrl, Policy{MaxAge: time.Minute, PageSize: 10}, quiet())
	require.NoError(t, err)
	d, err := NewDriver(NewRunner(s), time.Second, WithSchedule(every(10*time.Millisecond)), WithDriverLogger(zerolog.Nop()))
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	waitEntered(t, ctrl)

	stopped := make(chan error, 1)
	go func() { stopped <- d.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(ctrl.block)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
	assert.Empty(t, st.ids(), "in-flight sweep ran to completion")
}

func TestDriver_StartContextCancelLetsSweepFinish(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	st := newFakeStore(rec, broadcast.New("old", time.Now().Add(-time.Hour)))
	ctrl := newFakeController(rec)
	ctrl.block = make(chan struct{})
	ctrl.entered = make(chan struct{}, 1)
	s, err := NewSweeper(st, ctrl, Policy{MaxAge: time.Minute, PageSize: 10}, quiet())
	require.NoError(t, err)
	r := NewRunner(s)
	d, err := NewDriver(r, time.Second, WithSchedule(every(10*time.Millisecond)), WithDriverLogger(zerolog.Nop()))
	require.NoError(t, err)

	sigCtx, sigCancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(sigCtx))
	waitEntered(t, ctrl)

	sigCancel()
	close(ctrl.block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	assert.Empty(t, st.ids(), "in-flight sweep reaped the record after the start context ended")
	assert.Equal(t, 1, ctrl.stops("old"))
	status := r.Status()
	require.NotNil(t, status.Last)
	assert.Empty(t, status.LastError)
	assert.Equal(t, TerminationCountReached, status.Last.Termination)
}

func TestDriver_StopDeadline(t *testing.T) {
	rec := &recorder{}
	st := newFakeStore(rec, broadcast.New("old", time.Now().Add(-time.Hour)))
	ctrl := newFakeController(rec)
	ctrl.block = make(chan struct{})
	ctrl.entered = make(chan struct{}, 1)
	s, err := NewSweeper(st, ctrl, Policy{MaxAge: time.Minute, PageSize: 10}, quiet())
	require.NoError(t, err)
	d, err := NewDriver(NewRunner(s), time.Second, WithSchedule(every(10*time.Millisecond)), WithDriverLogger(zerolog.Nop()))
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	waitEntered(t, ctrl)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
	close(ctrl.block)
}

func TestDriver_RecoversFromPanickingSweep(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	st := newFakeStore(rec, broadcast.New("boom", time.Now().Add(-time.Hour)))
	ctrl := newFakeController(rec)
	ctrl.panicOn = "boom"
	s, err := NewSweeper(st, ctrl, Policy{MaxAge: time.Minute, PageSize: 10}, quiet())
	require.NoError(t, err)
	r := NewRunner(s)
	d, err := NewDriver(r, time.Second, WithSchedule(every(10*time.Millisecond)), WithDriverLogger(zerolog.Nop()))
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	// the first tick panics; a later tick must still reap the record
	require.Eventually(t, func() bool { return len(st.ids()) == 0 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	assert.False(t, r.Status().InFlight)
}
