// Package store persists the extraction pipeline's entities in SQLite.
//
// Pages own snapshots and definitions; runs hang off both a definition and a
// snapshot. All ownership cascades are enforced with foreign keys, so deleting
// a page removes every dependent row in one statement.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/use-agent/pagent/models"
)

// Schema bootstraps all tables. Applied on every Open; statements are
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	url TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pages_owner ON pages(owner_id);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	html BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	byte_length INTEGER NOT NULL DEFAULT 0,
	fetched_at TEXT NOT NULL DEFAULT '',
	status INTEGER NOT NULL DEFAULT 0,
	method TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	structure_hash INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_page ON snapshots(page_id, created_at);

CREATE TABLE IF NOT EXISTS definitions (
	id TEXT PRIMARY KEY,
	page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	parent_id TEXT NOT NULL DEFAULT '',
	goal TEXT NOT NULL,
	code TEXT NOT NULL,
	schema TEXT,
	state TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_definitions_page ON definitions(page_id, created_at);
CREATE INDEX IF NOT EXISTS idx_definitions_snapshot ON definitions(snapshot_id);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	definition_id TEXT NOT NULL REFERENCES definitions(id) ON DELETE CASCADE,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	output TEXT NOT NULL,
	drifted INTEGER NOT NULL DEFAULT 0,
	structure_distance INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_definition ON runs(definition_id, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_snapshot ON runs(snapshot_id);
`

// Store wraps the SQLite database handle.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the database at path and applies the
// schema. WAL mode and a busy timeout keep concurrent readers and the single
// writer from tripping over each other.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Stats returns row counts for the health endpoint.
func (s *Store) Stats(ctx context.Context) (models.StoreStats, error) {
	var st models.StoreStats
	for _, c := range []struct {
		table string
		dst   *int64
	}{
		{"pages", &st.Pages},
		{"snapshots", &st.Snapshots},
		{"definitions", &st.Definitions},
		{"runs", &st.Runs},
	} {
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table)
		if err := row.Scan(c.dst); err != nil {
			return st, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return st, nil
}

// notFound is the uniform absent-or-not-owned error. Ownership misses look
// identical to missing rows so existence never leaks across owners.
func notFound(what string) error {
	return models.NewPipelineError(models.ErrCodeNotFound, what+" not found", nil)
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromUnix(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
