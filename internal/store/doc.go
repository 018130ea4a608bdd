// Package store provides persistent entity storage for folio.
//
// # Architecture
//
// Everything the site shows lives in one Repository with three entity kinds:
//
//   - Settings: the owner profile (at most one record is used)
//   - Project: portfolio entries
//   - ContactMessage: visitor submissions from the contact form
//
// Each entity is a Record: store-assigned metadata (id, createdAt, updatedAt)
// plus an opaque JSON document. Update merges only the supplied top-level
// fields into that document, so a partial update never erases other fields.
//
// Implementations:
//
//   - SQLiteStore: local database using modernc.org/sqlite
//   - remote.Client: HTTP client for a folio server's entity API
//   - MockStore: in-memory store with failure injection for tests
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Database file locations:
//
//   - Development: ~/.local/share/folio/folio.db
//   - Testing: :memory: or a file under t.TempDir()
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrRepositoryUnavailable: Backing store unreachable or failed; retryable
//   - ErrUnknownKind: Kind outside Settings, Project, ContactMessage
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	repo := store.NewMockStore()
//	repo.SetFailure(errors.New("offline")) // every call now fails
//
// Use NewSQLiteStore(":memory:") for integration tests with real SQLite.
package store
