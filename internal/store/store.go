// ABOUTME: Repository interface and record types for folio content persistence
// ABOUTME: Defines entity kinds, the Record wire form, and the sentinel errors

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrRepositoryUnavailable is returned when the backing store cannot be reached
// or fails to complete an operation. Callers may retry the same operation.
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// ErrUnknownKind is returned for entity kinds outside the supported set
var ErrUnknownKind = errors.New("unknown entity kind")

// Kind names an entity collection in the store
type Kind string

// Supported entity kinds
const (
	KindSettings       Kind = "Settings"
	KindProject        Kind = "Project"
	KindContactMessage Kind = "ContactMessage"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindSettings, KindProject, KindContactMessage}
}

// ParseKind validates a kind name received from outside the process.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSettings, KindProject, KindContactMessage:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Fields holds top-level document fields for create and update calls.
// Keys reserved for record metadata (id, kind, createdAt, updatedAt) are ignored.
type Fields map[string]any

// Record is a persisted entity: metadata assigned by the store plus the
// opaque JSON document holding the entity's fields.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Fields    json.RawMessage `json:"fields"`
}

// Clone returns a deep copy so cached records cannot be mutated through a caller.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = append(json.RawMessage(nil), r.Fields...)
	return &c
}

// Repository is the entity store contract consumed by the cache.
// Update merges only the provided fields into the stored document.
type Repository interface {
	List(ctx context.Context, kind Kind, sortKey string) ([]*Record, error)
	Create(ctx context.Context, kind Kind, fields Fields) (*Record, error)
	Update(ctx context.Context, kind Kind, id string, fields Fields) (*Record, error)
	Delete(ctx context.Context, kind Kind, id string) error
}

// reservedFields are record metadata keys never written into documents
var reservedFields = map[string]bool{
	"id":        true,
	"kind":      true,
	"createdAt": true,
	"updatedAt": true,
}

// unavailable wraps err so errors.Is holds for both ErrRepositoryUnavailable
// and the underlying cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRepositoryUnavailable, op, err)
}
