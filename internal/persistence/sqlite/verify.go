// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Verify modes accepted by VerifyIntegrity.
const (
	VerifyQuick = "quick"
	VerifyFull  = "full"
)

// VerifyIntegrity opens path read-only and runs quick_check or integrity_check.
// It returns nil when the database is healthy, otherwise the diagnostic rows.
// requiredTables are checked for existence after the structural check passes.
func VerifyIntegrity(ctx context.Context, path, mode string, requiredTables ...string) ([]string, error) {
	var pragma string
	switch mode {
	case VerifyQuick, "":
		pragma = "PRAGMA quick_check"
	case VerifyFull:
		pragma = "PRAGMA integrity_check"
	default:
		return nil, fmt.Errorf("sqlite: unknown verify mode %q", mode)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("sqlite: database %s does not exist", path)
		}
		return nil, fmt.Errorf("sqlite: stat %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open for verification: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := queryStrings(ctx, db, pragma)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
	}
	switch {
	case len(rows) == 0:
		return []string{"integrity check returned no rows"}, nil
	case len(rows) > 1 || !strings.EqualFold(rows[0], "ok"):
		return rows, nil
	}

	var missing []string
	for _, table := range requiredTables {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("sqlite: schema lookup: %w", err)
		}
		if n == 0 {
			missing = append(missing, "missing table: "+table)
		}
	}
	return missing, nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
