// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps two key families:
//   - bc:<stream_id>                 -> JSON record
//   - ts:<created_at_ms %020d>:<id>  -> empty; lexical order == creation order
//
// Both are written in one transaction so the index never drifts from the records.
type BadgerStore struct {
	db *badger.DB
}

var (
	badgerRecordPrefix = []byte("bc:")
	badgerIndexPrefix  = []byte("ts:")
)

func OpenBadgerStore(path string) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("badger store path required")
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store closed")
	}
	return ctx.Err()
}

func badgerRecordKey(streamID string) []byte {
	return append(append([]byte{}, badgerRecordPrefix...), streamID...)
}

func badgerIndexKey(b broadcast.Broadcast) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", badgerIndexPrefix, b.CreatedAtMs, b.StreamID))
}

func (s *BadgerStore) Put(ctx context.Context, b broadcast.Broadcast) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = broadcast.StatusCreated
	}

	return s.db.Update(func(txn *badger.Txn) error {
		prev, err := badgerGet(txn, b.StreamID)
		switch {
		case err == nil:
			b.CreatedAtMs = prev.CreatedAtMs
		case errors.Is(err, broadcast.ErrNotFound):
			if err := txn.Set(badgerIndexKey(b), nil); err != nil {
				return err
			}
		default:
			return err
		}

		buf, err := json.Marshal(b)
		if err != nil {
			return err
		}
		return txn.Set(badgerRecordKey(b.StreamID), buf)
	})
}

func (s *BadgerStore) Get(ctx context.Context, streamID string) (broadcast.Broadcast, error) {
	var out broadcast.Broadcast
	err := s.db.View(func(txn *badger.Txn) error {
		b, err := badgerGet(txn, streamID)
		out = b
		return err
	})
	return out, err
}

func badgerGet(txn *badger.Txn, streamID string) (broadcast.Broadcast, error) {
	var out broadcast.Broadcast
	item, err := txn.Get(badgerRecordKey(streamID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return out, broadcast.ErrNotFound
		}
		return out, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	})
	return out, err
}

func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = badgerIndexPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *BadgerStore) ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error) {
	offset, limit, ok := normalizePage(offset, limit)
	if !ok {
		return []broadcast.Broadcast{}, nil
	}

	out := make([]broadcast.Broadcast, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = badgerIndexPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			streamID, err := streamIDFromIndexKey(it.Item().Key())
			if err != nil {
				return err
			}
			b, err := badgerGet(txn, streamID)
			if err != nil {
				return fmt.Errorf("index entry %s without record: %w", streamID, err)
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Delete(ctx context.Context, streamID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prev, err := badgerGet(txn, streamID)
		if errors.Is(err, broadcast.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(badgerIndexKey(prev)); err != nil {
			return err
		}
		return txn.Delete(badgerRecordKey(streamID))
	})
}

// streamIDFromIndexKey parses "ts:<20 digits>:<id>".
func streamIDFromIndexKey(key []byte) (string, error) {
	const tsLen = 20
	head := len(badgerIndexPrefix) + tsLen + 1
	if len(key) <= head || key[head-1] != ':' {
		return "", fmt.Errorf("malformed index key %q", key)
	}
	return string(key[head:]), nil
}
