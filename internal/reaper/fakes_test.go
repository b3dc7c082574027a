// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reaper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/rs/zerolog"
)

var errInjected = errors.New("injected failure")

// recorder collects the ordered store and controller calls of one test.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// fakeStore returns records in the order given, so tests can also feed
// orderings a real store would never produce. With frozen set, ListPage
// serves the listing as it was at Count, like a store whose listing lags
// behind acknowledged deletes.
type fakeStore struct {
	rec *recorder

	mu          sync.Mutex
	records     []broadcast.Broadcast
	frozen      bool
	listing     []broadcast.Broadcast
	countErr    error
	listErr     error
	failDelete  map[string]bool
	listedPages int
}

func newFakeStore(rec *recorder, records ...broadcast.Broadcast) *fakeStore {
	return &fakeStore{rec: rec, records: records, failDelete: map[string]bool{}}
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.rec.add("Count")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	if s.frozen {
		s.listing = append([]broadcast.Broadcast(nil), s.records...)
	}
	return len(s.records), nil
}

func (s *fakeStore) ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error) {
	s.rec.add("ListPage(%d,%d)", offset, limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listedPages++
	if s.listErr != nil {
		return nil, s.listErr
	}
	src := s.records
	if s.frozen {
		src = s.listing
	}
	if offset >= len(src) {
		return nil, nil
	}
	end := min(offset+limit, len(src))
	return append([]broadcast.Broadcast(nil), src[offset:end]...), nil
}

func (s *fakeStore) Delete(ctx context.Context, streamID string) error {
	s.rec.add("Delete(%s)", streamID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[streamID] {
		return errInjected
	}
	for i, b := range s.records {
		if b.StreamID == streamID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, b := range s.records {
		out = append(out, b.StreamID)
	}
	return out
}

type fakeController struct {
	rec *recorder

	mu       sync.Mutex
	failStop map[string]bool
	stopped  map[string]int
	// block, when set, is waited on inside Stop (or ctx.Done, whichever first).
	block   chan struct{}
	entered chan struct{}
	panicOn string
}

func newFakeController(rec *recorder) *fakeController {
	return &fakeController{rec: rec, failStop: map[string]bool{}, stopped: map[string]int{}}
}

func (c *fakeController) Stop(ctx context.Context, streamID string, force bool, reason string) error {
	c.rec.add("Stop(%s,%t,%s)", streamID, force, reason)
	if c.entered != nil {
		select {
		case c.entered <- struct{}{}:
		default:
		}
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panicOn == streamID {
		c.panicOn = ""
		panic("controller exploded")
	}
	if c.failStop[streamID] {
		return errInjected
	}
	c.stopped[streamID]++
	return nil
}

func (c *fakeController) stops(streamID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped[streamID]
}

// aged builds a broadcast created age before now.
func aged(id string, now time.Time, age time.Duration) broadcast.Broadcast {
	return broadcast.New(id, now.Add(-age))
}

func fixedClock(now time.Time) Option {
	return WithClock(func() time.Time { return now })
}

func quiet() Option {
	return WithLogger(zerolog.Nop())
}

// pageCalls lists the ListPage calls a sweep should make over a listing
// that does not shift.
func pageCalls(pageSize int, offsets ...int) []string {
	out := make([]string, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, fmt.Sprintf("ListPage(%d,%d)", off, pageSize))
	}
	return out
}

func (r *recorder) listCalls() []string {
	var out []string
	for _, c := range r.snapshot() {
		if strings.HasPrefix(c, "ListPage(") {
			out = append(out, c)
		}
	}
	return out
}
