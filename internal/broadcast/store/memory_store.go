// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ManuGH/streamreaper/internal/broadcast"
)

// MemoryStore is an in-memory StateStore intended for tests and local iteration.
// Not durable; not suitable for production.
type MemoryStore struct {
	mu sync.RWMutex

	byID map[string]broadcast.Broadcast
	// ordered is kept sorted by broadcast.Less
	ordered []broadcast.Broadcast
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]broadcast.Broadcast),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Put(ctx context.Context, b broadcast.Broadcast) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = broadcast.StatusCreated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.byID[b.StreamID]; ok {
		b.CreatedAtMs = prev.CreatedAtMs
		m.byID[b.StreamID] = b
		i := m.indexOf(prev)
		m.ordered[i] = b
		return nil
	}

	m.byID[b.StreamID] = b
	i := sort.Search(len(m.ordered), func(i int) bool { return !broadcast.Less(m.ordered[i], b) })
	m.ordered = append(m.ordered, broadcast.Broadcast{})
	copy(m.ordered[i+1:], m.ordered[i:])
	m.ordered[i] = b
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, streamID string) (broadcast.Broadcast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byID[streamID]
	if !ok {
		return broadcast.Broadcast{}, broadcast.ErrNotFound
	}
	return b, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ordered), nil
}

func (m *MemoryStore) ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error) {
	offset, limit, ok := normalizePage(offset, limit)
	if !ok {
		return []broadcast.Broadcast{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset >= len(m.ordered) {
		return []broadcast.Broadcast{}, nil
	}
	end := offset + limit
	if end > len(m.ordered) {
		end = len(m.ordered)
	}
	out := make([]broadcast.Broadcast, end-offset)
	copy(out, m.ordered[offset:end])
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, streamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.byID[streamID]
	if !ok {
		return nil
	}
	delete(m.byID, streamID)
	i := m.indexOf(prev)
	m.ordered = append(m.ordered[:i], m.ordered[i+1:]...)
	return nil
}

// indexOf locates b in ordered. Caller must hold the lock and b must be present.
func (m *MemoryStore) indexOf(b broadcast.Broadcast) int {
	return sort.Search(len(m.ordered), func(i int) bool { return !broadcast.Less(m.ordered[i], b) })
}
