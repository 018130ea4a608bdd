// ABOUTME: Durable string key/value storage on the local machine backed by SQLite
// ABOUTME: Holds UI preferences and the offline contact capture log

package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when a key has never been set.
var ErrNotFound = errors.New("key not found")

// schemaVersion is the kv schema this package writes. Stored in PRAGMA user_version.
const schemaVersion = 1

// connPragmas are applied once at open; the store sees many small reads and rare writes.
var connPragmas = []string{
	"PRAGMA busy_timeout=5000;",
	"PRAGMA synchronous=NORMAL;",
}

// Store is a string key/value table in its own SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the key/value file at dbPath, creating it with owner-only
// permissions on first use. ":memory:" keeps everything in memory.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("local storage path is empty")
	}

	inMemory := dbPath == ":memory:"
	if !inMemory {
		if err := touchPrivate(dbPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening local storage: %w", err)
	}
	if inMemory {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.prepare(ctx, inMemory); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// touchPrivate makes sure the file and its directory exist before SQLite
// opens them, so the values are never world-readable.
func touchPrivate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating local storage directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("creating local storage file: %w", err)
	}
	return f.Close()
}

// prepare sets connection pragmas and brings the kv table up to schemaVersion.
func (s *Store) prepare(ctx context.Context, inMemory bool) error {
	if !inMemory {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enabling WAL for local storage: %w", err)
		}
	}
	for _, p := range connPragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&current); err != nil {
		return fmt.Errorf("reading local storage version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting kv schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d;", schemaVersion)); err != nil {
		return fmt.Errorf("recording kv schema version: %w", err)
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Update reads key, passes the current value to fn and stores the result,
// all inside one transaction. exists is false when the key was never set.
func (s *Store) Update(ctx context.Context, key string, fn func(current string, exists bool) (string, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %q: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	exists := true
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("update %q: %w", key, err)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, next, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("update %q: %w", key, err)
	}
	return tx.Commit()
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
