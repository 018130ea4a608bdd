// ABOUTME: SQLite implementation of the Repository interface using modernc.org/sqlite
// ABOUTME: Stores every entity kind as a JSON document in a single entities table

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so stored timestamps order lexically
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Repository using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases shared across calls
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entities (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			fields_json TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			CHECK (kind IN ('Settings', 'Project', 'ContactMessage'))
		);

		CREATE INDEX IF NOT EXISTS idx_entities_kind_created
			ON entities(kind, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers queries.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// List returns all records of a kind in insertion order, then ordered by sortKey.
func (s *SQLiteStore) List(ctx context.Context, kind Kind, sortKey string) ([]*Record, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	query := `
		SELECT id, kind, fields_json, created_at, updated_at
		FROM entities
		WHERE kind = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, unavailable("querying entities", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating entity rows", err)
	}

	SortRecords(records, sortKey)
	return records, nil
}

// Create inserts a new record, assigning its id and timestamps.
func (s *SQLiteStore) Create(ctx context.Context, kind Kind, fields Fields) (*Record, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	doc, err := newDocument(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding fields: %w", err)
	}

	now := s.now().UTC()
	rec := &Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    doc,
	}

	query := `
		INSERT INTO entities (id, kind, fields_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Kind),
		string(rec.Fields),
		rec.CreatedAt.Format(timeFormat),
		rec.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return nil, unavailable("inserting entity", err)
	}

	s.logger.Debug("created entity", "kind", kind, "id", rec.ID)
	return rec, nil
}

// Update merges fields into an existing record's document.
// Returns ErrNotFound if no record of that kind has the id.
func (s *SQLiteStore) Update(ctx context.Context, kind Kind, id string, fields Fields) (*Record, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("beginning update", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, kind, fields_json, created_at, updated_at
		FROM entities
		WHERE kind = ? AND id = ?
	`, string(kind), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	merged, err := mergeFields(rec.Fields, fields)
	if err != nil {
		return nil, fmt.Errorf("merging fields: %w", err)
	}
	rec.Fields = merged
	rec.UpdatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE entities SET fields_json = ?, updated_at = ?
		WHERE id = ?
	`, string(rec.Fields), rec.UpdatedAt.Format(timeFormat), rec.ID)
	if err != nil {
		return nil, unavailable("updating entity", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("committing update", err)
	}

	s.logger.Debug("updated entity", "kind", kind, "id", id, "fields", len(fields))
	return rec, nil
}

// Delete removes a record. Returns ErrNotFound if it does not exist.
func (s *SQLiteStore) Delete(ctx context.Context, kind Kind, id string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return unavailable("deleting entity", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("checking rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted entity", "kind", kind, "id", id)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var kind, doc, createdAtStr, updatedAtStr string

	if err := row.Scan(&rec.ID, &kind, &doc, &createdAtStr, &updatedAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scanning entity row", err)
	}

	var err error
	rec.Kind = Kind(kind)
	rec.Fields = []byte(doc)
	rec.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing entity created_at: %w", err)
	}
	rec.UpdatedAt, err = time.Parse(timeFormat, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing entity updated_at: %w", err)
	}
	return &rec, nil
}
