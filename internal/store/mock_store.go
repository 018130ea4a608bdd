// ABOUTME: Mock Repository implementation for testing
// ABOUTME: In-memory entities with failure injection, call counting and call hooks

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names reported to MockStore hooks and counters
const (
	OpList   = "List"
	OpCreate = "Create"
	OpUpdate = "Update"
	OpDelete = "Delete"
)

// MockStore is an in-memory Repository implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[Kind][]*Record // insertion order per kind
	calls   map[string]int     // keyed by "op:kind"
	failErr error              // returned by every operation while set

	// OnCall runs before each operation, outside the lock. Tests use it to
	// block an operation mid-flight or to observe ordering.
	OnCall func(op string, kind Kind)

	now func() time.Time
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[Kind][]*Record),
		calls:   make(map[string]int),
		now:     time.Now,
	}
}

// SetFailure makes every subsequent operation fail with err wrapped as
// ErrRepositoryUnavailable. Pass nil to restore normal behavior.
func (m *MockStore) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Calls reports how many times op was invoked for kind.
func (m *MockStore) Calls(op string, kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op+":"+string(kind)]
}

// Seed inserts a record directly, bypassing hooks and counters.
func (m *MockStore) Seed(kind Kind, fields Fields) *Record {
	doc, err := newDocument(fields)
	if err != nil {
		panic(fmt.Sprintf("mock store seed: %v", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.insertLocked(kind, doc)
	return rec.Clone()
}

// begin counts the call, runs the hook and reports any injected failure.
func (m *MockStore) begin(op string, kind Kind) error {
	m.mu.Lock()
	m.calls[op+":"+string(kind)]++
	hook := m.OnCall
	m.mu.Unlock()

	if hook != nil {
		hook(op, kind)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failErr != nil {
		return unavailable(op, m.failErr)
	}
	return nil
}

// insertLocked appends a new record. Must be called with mu held.
func (m *MockStore) insertLocked(kind Kind, doc []byte) *Record {
	now := m.now().UTC()

	// Keep creation times strictly increasing so ordering is deterministic
	if existing := m.records[kind]; len(existing) > 0 {
		if last := existing[len(existing)-1].CreatedAt; !now.After(last) {
			now = last.Add(time.Microsecond)
		}
	}

	rec := &Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    doc,
	}
	m.records[kind] = append(m.records[kind], rec)
	return rec
}

// List returns copies of all records of a kind ordered by sortKey.
func (m *MockStore) List(ctx context.Context, kind Kind, sortKey string) ([]*Record, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := m.begin(OpList, kind); err != nil {
		return nil, err
	}

	m.mu.RLock()
	result := make([]*Record, 0, len(m.records[kind]))
	for _, rec := range m.records[kind] {
		result = append(result, rec.Clone())
	}
	m.mu.RUnlock()

	SortRecords(result, sortKey)
	return result, nil
}

// Create stores a new record.
func (m *MockStore) Create(ctx context.Context, kind Kind, fields Fields) (*Record, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := m.begin(OpCreate, kind); err != nil {
		return nil, err
	}

	doc, err := newDocument(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding fields: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insertLocked(kind, doc).Clone(), nil
}

// Update merges fields into an existing record.
func (m *MockStore) Update(ctx context.Context, kind Kind, id string, fields Fields) (*Record, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := m.begin(OpUpdate, kind); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records[kind] {
		if rec.ID != id {
			continue
		}
		merged, err := mergeFields(rec.Fields, fields)
		if err != nil {
			return nil, fmt.Errorf("merging fields: %w", err)
		}
		rec.Fields = merged
		rec.UpdatedAt = m.now().UTC()
		return rec.Clone(), nil
	}
	return nil, ErrNotFound
}

// Delete removes a record.
func (m *MockStore) Delete(ctx context.Context, kind Kind, id string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if err := m.begin(OpDelete, kind); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.records[kind]
	for i, rec := range records {
		if rec.ID == id {
			m.records[kind] = append(records[:i:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
