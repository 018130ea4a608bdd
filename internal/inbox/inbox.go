// ABOUTME: Contact message inbox over the entity cache
// ABOUTME: Unread counting and idempotent mark-read

package inbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/store"
)

// UnreadCount returns how many messages have not been read.
func UnreadCount(messages []*content.ContactMessage) int {
	n := 0
	for _, m := range messages {
		if !m.Read {
			n++
		}
	}
	return n
}

// Cache is the subset of *cache.Cache the inbox needs.
type Cache interface {
	Get(kind store.Kind) cache.Snapshot
	Load(ctx context.Context, kind store.Kind) (cache.Snapshot, error)
	Invalidate(kind store.Kind)
	Mutate(ctx context.Context, kind store.Kind, op cache.Op) (*store.Record, error)
}

// Inbox reads and updates contact messages.
type Inbox struct {
	cache  Cache
	logger *slog.Logger
}

// New creates an Inbox. Pass nil logger for default.
func New(c Cache, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		cache:  c,
		logger: logger.With("component", "inbox"),
	}
}

// Messages returns messages newest first. When the fetch fails the last
// cached list is returned along with the error.
func (i *Inbox) Messages(ctx context.Context) ([]*content.ContactMessage, error) {
	snap, err := i.cache.Load(ctx, store.KindContactMessage)
	return content.Messages(snap.Records), err
}

// Cached returns the cached messages without waiting for a fetch.
func (i *Inbox) Cached() []*content.ContactMessage {
	return content.Messages(i.cache.Get(store.KindContactMessage).Records)
}

// Unread returns the unread count of the current message list.
func (i *Inbox) Unread(ctx context.Context) (int, error) {
	msgs, err := i.Messages(ctx)
	return UnreadCount(msgs), err
}

// Refresh schedules a re-fetch of the message list.
func (i *Inbox) Refresh() {
	i.cache.Invalidate(store.KindContactMessage)
}

// MarkRead sets read on message id. A message already read in the cache is
// left alone without touching the repository.
func (i *Inbox) MarkRead(ctx context.Context, id string) error {
	for _, m := range i.Cached() {
		if m.ID == id && m.Read {
			return nil
		}
	}

	if _, err := i.cache.Mutate(ctx, store.KindContactMessage, cache.Update(id, store.Fields{"read": true})); err != nil {
		return fmt.Errorf("marking message %s read: %w", id, err)
	}
	i.logger.Debug("message marked read", "id", id)
	return nil
}
