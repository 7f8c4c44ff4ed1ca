// Package store persists activities, clusters, stories, derivations, and
// the credit ledger in SQLite. All reads and writes are scoped by user id;
// a row that exists but belongs to someone else is reported as not found.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database connection.
type Store struct {
	db   *sql.DB
	Path string
}

// Open opens (creating if needed) the storyarc database at path with WAL
// mode and foreign keys enabled. Pass ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for concurrent readers; serialize writers at the driver level
	// so transactional membership updates don't trip SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, Path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		source      TEXT NOT NULL,
		source_id   TEXT NOT NULL DEFAULT '',
		url         TEXT NOT NULL DEFAULT '',
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL,
		refs        TEXT NOT NULL DEFAULT '[]',
		payload     TEXT NOT NULL DEFAULT '',
		cluster_id  TEXT,
		created_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clusters (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		cluster_id TEXT NOT NULL UNIQUE,
		notes      TEXT NOT NULL DEFAULT '',
		phases     TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stories (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		cluster_id    TEXT NOT NULL,
		journal_id    TEXT NOT NULL DEFAULT '',
		framework     TEXT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT '',
		archetype     TEXT NOT NULL DEFAULT '',
		tier          TEXT NOT NULL DEFAULT '',
		published     INTEGER NOT NULL DEFAULT 0,
		sections      TEXT NOT NULL DEFAULT '[]',
		verifications TEXT NOT NULL DEFAULT '[]',
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS derivations (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		kind          TEXT NOT NULL,
		type          TEXT NOT NULL,
		story_ids     TEXT NOT NULL DEFAULT '[]',
		snapshots     TEXT NOT NULL DEFAULT '[]',
		content       TEXT NOT NULL,
		tone          TEXT NOT NULL DEFAULT '',
		custom_prompt TEXT NOT NULL DEFAULT '',
		char_count    INTEGER NOT NULL DEFAULT 0,
		word_count    INTEGER NOT NULL DEFAULT 0,
		speak_seconds INTEGER NOT NULL DEFAULT 0,
		credit_cost   INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credits (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, cluster_id);
	CREATE INDEX IF NOT EXISTS idx_activities_source ON activities(user_id, source, source_id);
	CREATE INDEX IF NOT EXISTS idx_clusters_user ON clusters(user_id);
	CREATE INDEX IF NOT EXISTS idx_stories_user ON stories(user_id);
	CREATE INDEX IF NOT EXISTS idx_derivations_user ON derivations(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}
