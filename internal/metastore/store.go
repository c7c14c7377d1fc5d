// Package metastore is the relational persistence layer (spec §4.A): typed
// row operations over shelves, boxes, memberships, crawl sessions, pages,
// chunks, wizard sessions, and settings, backed by SQLite
// (github.com/mattn/go-sqlite3, the driver the fredcamaral-mcp-alfarrabio
// example wires for its own event store). Connection-pool sizing and the
// WAL pragma follow that example's pattern.
package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/errs"
)

// Store is the single-writer-per-row MetaStore (spec §4.A). All exported
// methods are safe for concurrent use; row-level single-writer semantics
// are provided by SQLite's own locking plus short-lived transactions, never
// an in-process global mutex, so independent rows do not serialize against
// each other.
type Store struct {
	db     *sql.DB
	log    *zap.Logger
}

// Open creates (or attaches to) the SQLite database at path and ensures the
// schema exists. The default connection pool is bounded to 8 connections
// per spec §5 ("MetaStore connection pool: bounded (default 8)").
func Open(path string, log *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "metastore: open database")
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.EnsureDefaultShelf(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the full schema idempotently (CREATE TABLE IF NOT EXISTS).
// DocBro has no migration history to replay yet; this is schema v1.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.Internal, err, "metastore: apply schema")
		}
	}
	return nil
}

// isUniqueConstraintErr reports whether err is a SQLite UNIQUE constraint
// violation, the signal metastore uses to surface errs.NameTaken.
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	// github.com/mattn/go-sqlite3 reports this as a *sqlite3.Error with
	// ExtendedCode sqlite3.ErrConstraintUnique; matching on the message
	// avoids an import-time dependency on the concrete driver error type
	// across every call site.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS shelves (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_ci TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		default_box_type TEXT NOT NULL,
		auto_fill INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]',
		is_current INTEGER NOT NULL DEFAULT 0,
		protected INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS boxes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		config_json TEXT NOT NULL DEFAULT '{}',
		is_configured INTEGER NOT NULL DEFAULT 0,
		setup_completed_at TEXT,
		has_content INTEGER NOT NULL DEFAULT 0,
		configuration_version TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		shelf_id TEXT NOT NULL REFERENCES shelves(id),
		box_id TEXT NOT NULL REFERENCES boxes(id),
		PRIMARY KEY (shelf_id, box_id)
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_sessions (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL REFERENCES boxes(id),
		started_at TEXT NOT NULL,
		ended_at TEXT,
		status TEXT NOT NULL,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		pages_skipped INTEGER NOT NULL DEFAULT 0,
		seed_url TEXT NOT NULL,
		depth_limit INTEGER NOT NULL,
		rate_limit REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES crawl_sessions(id),
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL REFERENCES boxes(id),
		url TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL DEFAULT 0,
		UNIQUE (box_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		page_id TEXT NOT NULL REFERENCES pages(id),
		box_id TEXT NOT NULL REFERENCES boxes(id),
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL,
		header_context TEXT NOT NULL DEFAULT '',
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		embedding_ref TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_page ON chunks(page_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_box ON chunks(box_id)`,
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		current_step INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		collected_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// txFunc runs fn inside a serialized transaction, rolling back on error.
func (s *Store) txFunc(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Internal, err, "metastore: commit transaction")
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
