// ABOUTME: Local append-only log of contact messages captured while the repository is down
// ABOUTME: JSON array under the portfolio-messages key, appended with sjson and read with gjson

package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/2389/folio/internal/local"
)

// StorageKey is the local storage key holding the fallback log.
const StorageKey = "portfolio-messages"

// Entry is one locally captured message.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// KV is the local storage the log lives in. *local.Store satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Update(ctx context.Context, key string, fn func(current string, exists bool) (string, error)) error
}

// FallbackLog appends messages to local storage. Entries are never removed
// and are never pushed to the repository.
type FallbackLog struct {
	kv  KV
	now func() time.Time
}

// NewFallbackLog creates a log over kv.
func NewFallbackLog(kv KV) *FallbackLog {
	return &FallbackLog{kv: kv, now: time.Now}
}

// Append adds a message to the end of the log.
func (l *FallbackLog) Append(ctx context.Context, f Form) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.New().String(),
		Name:      f.Name,
		Email:     f.Email,
		Message:   f.Message,
		CreatedAt: l.now().UTC(),
	}

	err := l.kv.Update(ctx, StorageKey, func(current string, exists bool) (string, error) {
		if !exists || current == "" {
			current = "[]"
		}
		if !gjson.Valid(current) || !gjson.Parse(current).IsArray() {
			// Refuse to overwrite a log we cannot read
			return "", fmt.Errorf("fallback log %q is not a JSON array", StorageKey)
		}
		return sjson.Set(current, "-1", entry)
	})
	if err != nil {
		return nil, fmt.Errorf("appending to fallback log: %w", err)
	}
	return entry, nil
}

// List returns every captured message, oldest first.
func (l *FallbackLog) List(ctx context.Context) ([]Entry, error) {
	raw, err := l.kv.Get(ctx, StorageKey)
	if errors.Is(err, local.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fallback log: %w", err)
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("fallback log %q is not valid JSON", StorageKey)
	}

	var entries []Entry
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		created, _ := time.Parse(time.RFC3339Nano, v.Get("createdAt").String())
		entries = append(entries, Entry{
			ID:        v.Get("id").String(),
			Name:      v.Get("name").String(),
			Email:     v.Get("email").String(),
			Message:   v.Get("message").String(),
			CreatedAt: created,
		})
		return true
	})
	return entries, nil
}
