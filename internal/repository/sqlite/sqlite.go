// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - A single-user dashboard backend (which this is)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql" — a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// Key types:
//   - sql.DB      — a connection pool (NOT a single connection!)
//   - sql.Tx      — a transaction
//   - sql.Row     — a single result row
//   - sql.Rows    — multiple result rows (must be closed!)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// It doesn't give us any symbols to use directly. Instead, the sqlite package's
	// init() function registers itself with database/sql as a driver named "sqlite".
	// After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	//
	// This is Go's plugin pattern — database drivers register themselves at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
//
// WHY WRAP sql.DB IN A STRUCT?
// 1. We can attach methods to it (Upsert, ListByOwner, etc.)
// 2. We can add more fields later (logger, config, prepared statements)
// 3. It implements the RepoMirror and UserRepository interfaces
// 4. We control the lifecycle (New creates it, Close destroys it)
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/tracker.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection — it just creates a pool manager.
// The first real connection happens when you run your first query.
// We call db.Ping() to force an immediate connection and verify it works.
func New(dbPath string) (*DB, error) {
	// Open a connection pool to the SQLite database.
	// "sqlite" is the driver name registered by the blank import above.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query — which is much harder to debug.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// PRAGMA STATEMENTS:
	// SQLite has special "PRAGMA" commands that configure its behaviour.
	// These run once at connection time.

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes.
	// WAL mode allows concurrent reads WHILE a write is happening.
	// That matters here: a reconciliation pass writes dozens of rows while
	// the dashboard is reading the same table.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// We turn them on for referential integrity (users → repos).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	// Run database migrations to create/update tables
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
// Wherever you call New(), immediately defer Close():
//
//	db, err := sqlite.New("data/tracker.db")
//	if err != nil { ... }
//	defer db.Close()
//
// This ensures the connection is cleaned up even if a panic occurs.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// MIGRATIONS:
// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every startup.
// For schema CHANGES you'd use a tool like golang-migrate that tracks which
// migrations have run; we haven't needed one yet.
func (db *DB) migrate() error {
	// Users: one row per GitHub identity.
	// github_id is UNIQUE — each GitHub account maps to exactly one row.
	// The internal id is the ownerKey mirror rows hang off.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER NOT NULL UNIQUE,
			login      TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Repos: the mirror table. The primary key is the DETERMINISTIC composite
	// "<owner_key>_<remote_id>" (model.RecordID) — not a generated ID — so
	// concurrent reconciliation passes upsert the same row instead of
	// creating duplicates.
	//
	// topics is a JSON-encoded string array; SQLite has no array type and we
	// never query BY topic, only display them.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS repos (
			id                TEXT PRIMARY KEY,
			owner_key         TEXT NOT NULL,
			remote_id         INTEGER NOT NULL,
			name              TEXT NOT NULL,
			full_name         TEXT NOT NULL DEFAULT '',
			owner             TEXT NOT NULL DEFAULT '',
			url               TEXT NOT NULL DEFAULT '',
			description       TEXT NOT NULL DEFAULT '',
			private           INTEGER NOT NULL DEFAULT 0,
			language          TEXT NOT NULL DEFAULT '',
			stars             INTEGER NOT NULL DEFAULT 0,
			forks             INTEGER NOT NULL DEFAULT 0,
			default_branch    TEXT NOT NULL DEFAULT '',
			topics            TEXT NOT NULL DEFAULT '[]',
			size              INTEGER NOT NULL DEFAULT 0,
			remote_created_at DATETIME,
			remote_updated_at DATETIME,
			synced_at         DATETIME NOT NULL,
			provenance        TEXT NOT NULL DEFAULT 'synced'
		);
		CREATE INDEX IF NOT EXISTS idx_repos_owner_key ON repos(owner_key);
	`)
	if err != nil {
		return fmt.Errorf("creating repos table: %w", err)
	}

	return nil
}
