// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/ManuGH/streamreaper/internal/persistence/sqlite"
)

// SqliteTable is the table holding broadcast records.
const SqliteTable = "broadcasts"

// schemaSteps[i] upgrades the schema from version i to i+1.
var schemaSteps = []string{
	`
	CREATE TABLE IF NOT EXISTS broadcasts (
		stream_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_broadcasts_created ON broadcasts(created_at_ms, stream_id);
	`,
}

// SqliteStore implements StateStore using SQLite.
type SqliteStore struct {
	DB   *sql.DB
	path string
}

// NewSqliteStore opens (and migrates) the broadcast database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db, path: dbPath}
	if err := sqlite.Migrate(context.Background(), db, schemaSteps); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("broadcast store: migration failed: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SqliteStore) Path() string { return s.path }

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SqliteStore) Put(ctx context.Context, b broadcast.Broadcast) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = broadcast.StatusCreated
	}

	// created_at_ms is deliberately absent from the update clause
	query := `
	INSERT INTO broadcasts (stream_id, name, type, status, created_at_ms, updated_at_ms)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(stream_id) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		status = excluded.status,
		updated_at_ms = excluded.updated_at_ms
	`
	_, err := s.DB.ExecContext(ctx, query,
		b.StreamID, b.Name, b.Type, string(b.Status), b.CreatedAtMs, time.Now().UnixMilli())
	return err
}

func (s *SqliteStore) Get(ctx context.Context, streamID string) (broadcast.Broadcast, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT stream_id, name, type, status, created_at_ms FROM broadcasts WHERE stream_id = ?`, streamID)
	b, err := scanBroadcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return broadcast.Broadcast{}, broadcast.ErrNotFound
	}
	return b, err
}

func (s *SqliteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM broadcasts`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SqliteStore) ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error) {
	offset, limit, ok := normalizePage(offset, limit)
	if !ok {
		return []broadcast.Broadcast{}, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT stream_id, name, type, status, created_at_ms
		FROM broadcasts
		ORDER BY created_at_ms ASC, stream_id ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]broadcast.Broadcast, 0, limit)
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SqliteStore) Delete(ctx context.Context, streamID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM broadcasts WHERE stream_id = ?`, streamID)
	return err
}

func scanBroadcast(scanner interface {
	Scan(dest ...interface{}) error
}) (broadcast.Broadcast, error) {
	var b broadcast.Broadcast
	var status string
	if err := scanner.Scan(&b.StreamID, &b.Name, &b.Type, &status, &b.CreatedAtMs); err != nil {
		return broadcast.Broadcast{}, err
	}
	b.Status = broadcast.Status(status)
	return b, nil
}
