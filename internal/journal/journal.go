// SPDX-License-Identifier: AGPL-3.0-or-later

// Package journal persists a record of every launch to a SQLite database
// inside the workspace directory, so past runs of an output directory can
// be inspected with --history.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName   = "sqlite"
	defaultBusyTimeout = 5 * time.Second
	dbFileName         = "pigx.db"
)

var migrations = [...]string{
	`CREATE TABLE IF NOT EXISTS run_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pipeline TEXT NOT NULL,
		sample_sheet TEXT NOT NULL,
		argv TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_run_journal_started ON run_journal(started_at);`,
}

// Record is one persisted launch.
type Record struct {
	ID          int64
	Pipeline    string
	SampleSheet string
	Argv        []string
	ExitCode    int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Path returns where the journal database lives under dir. It does not
// touch the filesystem; callers can Stat the result to see whether a
// journal exists without creating one.
func Path(dir string) string {
	return filepath.Join(dir, dbFileName)
}

// DB wraps the SQLite connection holding the run journal.
type DB struct {
	sql *sql.DB
}

// Open initialises the journal database under dir, creating the schema on
// first use.
func Open(ctx context.Context, dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}
	dbPath := filepath.Join(dir, dbFileName)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", filepath.ToSlash(dbPath), int(defaultBusyTimeout/time.Millisecond))

	conn, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
	} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", stmt, err)
		}
	}
	for _, stmt := range migrations {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply migration: %w", err)
		}
	}
	return &DB{sql: conn}, nil
}

// Close shuts down the underlying connection.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// Append stores one launch record.
func (db *DB) Append(ctx context.Context, rec Record) error {
	if db == nil {
		return nil
	}
	if rec.Pipeline == "" {
		return fmt.Errorf("append journal: pipeline required")
	}
	_, err := db.sql.ExecContext(ctx, `
INSERT INTO run_journal (pipeline, sample_sheet, argv, exit_code, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?)
`, rec.Pipeline, rec.SampleSheet, strings.Join(rec.Argv, "\x00"),
		rec.ExitCode, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Recent returns up to limit launches, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Record, error) {
	if db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.sql.QueryContext(ctx, `
SELECT id, pipeline, sample_sheet, argv, exit_code, started_at, finished_at
FROM run_journal ORDER BY started_at DESC, id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var argv string
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Pipeline, &rec.SampleSheet, &argv, &rec.ExitCode, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		if argv != "" {
			rec.Argv = strings.Split(argv, "\x00")
		}
		rec.StartedAt = time.UnixMilli(started).UTC()
		rec.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal rows: %w", err)
	}
	return out, nil
}
