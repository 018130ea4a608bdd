// ABOUTME: In-memory fan-out of cache snapshots to subscribers per entity kind
// ABOUTME: Buffered, drop-on-full delivery with automatic unsubscribe on context cancel

package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/folio/internal/store"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	// Only the latest snapshot matters, so a small buffer is enough.
	subscriberBufferSize = 8
)

// notifier provides in-memory pub/sub for snapshots. Subscribers register
// for a kind and receive each snapshot published after a fetch resolves.
type notifier struct {
	mu          sync.RWMutex
	subscribers map[store.Kind]map[string]chan Snapshot // kind -> subID -> ch
	closed      bool
	done        chan struct{}
	logger      *slog.Logger
}

func newNotifier(logger *slog.Logger) *notifier {
	return &notifier{
		subscribers: make(map[store.Kind]map[string]chan Snapshot),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// subscribe registers a subscriber for kind. The subscription is removed
// when ctx is cancelled or the notifier is closed.
func (n *notifier) subscribe(ctx context.Context, kind store.Kind) (<-chan Snapshot, string) {
	subID := uuid.New().String()
	ch := make(chan Snapshot, subscriberBufferSize)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := n.subscribers[kind]; !ok {
		n.subscribers[kind] = make(map[string]chan Snapshot)
	}
	n.subscribers[kind][subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "kind", kind, "sub_id", subID)

	go func() {
		select {
		case <-ctx.Done():
			n.unsubscribe(kind, subID)
		case <-n.done:
		}
	}()

	return ch, subID
}

// publish sends snap to every subscriber of its kind. Non-blocking: the
// snapshot is dropped for subscribers whose channels are full. Sends happen
// under the read lock so unsubscribe cannot close a channel mid-send.
func (n *notifier) publish(snap Snapshot) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for subID, ch := range n.subscribers[snap.Kind] {
		select {
		case ch <- snap:
		default:
			n.logger.Debug("dropped snapshot for slow subscriber",
				"kind", snap.Kind,
				"sub_id", subID,
				"version", snap.Version)
		}
	}
}

// unsubscribe removes a subscription and closes its channel.
func (n *notifier) unsubscribe(kind store.Kind, subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs, ok := n.subscribers[kind]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(n.subscribers, kind)
	}

	n.logger.Debug("subscriber removed", "kind", kind, "sub_id", subID)
}

// close shuts down the notifier and closes all subscriber channels.
func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	close(n.done)

	for kind, subs := range n.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(n.subscribers, kind)
	}
}
