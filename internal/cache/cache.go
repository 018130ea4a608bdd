// ABOUTME: Per-kind entity cache in front of a Repository
// ABOUTME: Coalesced re-fetch after invalidation, stale data kept on failure

package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/folio/internal/store"
)

// ErrClosed is returned by Load once the cache has been closed.
var ErrClosed = errors.New("cache closed")

// Snapshot is an immutable view of one kind's cached records.
type Snapshot struct {
	Kind    store.Kind
	Records []*store.Record

	// Fresh is true when the records reflect the latest invalidation.
	Fresh bool

	// Err holds the most recent fetch failure. Records are from the last
	// successful fetch and are retained.
	Err error

	// Version increments on every successful fetch. Zero means never loaded.
	Version   uint64
	FetchedAt time.Time
}

// Op is a single repository mutation run through Mutate.
type Op func(ctx context.Context, repo store.Repository, kind store.Kind) (*store.Record, error)

// Create returns an Op that creates a record with fields.
func Create(fields store.Fields) Op {
	return func(ctx context.Context, repo store.Repository, kind store.Kind) (*store.Record, error) {
		return repo.Create(ctx, kind, fields)
	}
}

// Update returns an Op that merges fields into record id.
func Update(id string, fields store.Fields) Op {
	return func(ctx context.Context, repo store.Repository, kind store.Kind) (*store.Record, error) {
		return repo.Update(ctx, kind, id, fields)
	}
}

// Delete returns an Op that removes record id.
func Delete(id string) Op {
	return func(ctx context.Context, repo store.Repository, kind store.Kind) (*store.Record, error) {
		return nil, repo.Delete(ctx, kind, id)
	}
}

// DefaultSortKey returns the list order used for each kind.
func DefaultSortKey(kind store.Kind) string {
	switch kind {
	case store.KindProject, store.KindContactMessage:
		return "-createdAt"
	default:
		return ""
	}
}

type entry struct {
	records   []*store.Record
	loaded    bool
	stale     bool
	inFlight  bool
	followUp  bool // an invalidation arrived while a fetch was in flight
	err       error
	version   uint64
	fetchedAt time.Time

	started  uint64        // fetches started
	finished uint64        // fetches resolved
	resolved chan struct{} // closed and replaced each time a fetch resolves
}

func (e *entry) snapshot(kind store.Kind) Snapshot {
	records := make([]*store.Record, len(e.records))
	for i, rec := range e.records {
		records[i] = rec.Clone()
	}
	return Snapshot{
		Kind:      kind,
		Records:   records,
		Fresh:     e.loaded && !e.stale,
		Err:       e.err,
		Version:   e.version,
		FetchedAt: e.fetchedAt,
	}
}

// Cache holds the latest list of records per kind. At most one List call is
// in flight per kind; invalidations during a fetch coalesce into exactly one
// follow-up fetch.
type Cache struct {
	repo   store.Repository
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[store.Kind]*entry
	closed  bool

	notifier *notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a cache over repo. Pass nil logger for default.
func New(repo store.Repository, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache")

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[store.Kind]*entry),
		notifier: newNotifier(logger),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Repository returns the underlying repository.
func (c *Cache) Repository() store.Repository {
	return c.repo
}

func (c *Cache) entryLocked(kind store.Kind) *entry {
	e, ok := c.entries[kind]
	if !ok {
		e = &entry{stale: true, resolved: make(chan struct{})}
		c.entries[kind] = e
	}
	return e
}

// Get returns the current snapshot without blocking. If the kind has never
// been fetched or was invalidated, a fetch is started in the background.
func (c *Cache) Get(kind store.Kind) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(kind)
	if e.stale && !e.inFlight {
		c.startFetchLocked(kind, e)
	}
	return e.snapshot(kind)
}

// Load returns a snapshot that covers every invalidation made before the
// call, waiting for fetches as needed. A failed fetch returns the retained
// snapshot together with the fetch error.
func (c *Cache) Load(ctx context.Context, kind store.Kind) (Snapshot, error) {
	c.mu.Lock()
	e := c.entryLocked(kind)
	if e.loaded && !e.stale {
		snap := e.snapshot(kind)
		c.mu.Unlock()
		return snap, nil
	}
	if c.closed {
		snap := e.snapshot(kind)
		c.mu.Unlock()
		return snap, ErrClosed
	}

	if !e.inFlight {
		c.startFetchLocked(kind, e)
	}
	target := e.started
	if e.followUp {
		target++
	}

	for e.finished < target {
		resolved := e.resolved
		c.mu.Unlock()

		select {
		case <-resolved:
		case <-ctx.Done():
			return Snapshot{Kind: kind}, ctx.Err()
		case <-c.ctx.Done():
			return Snapshot{Kind: kind}, ErrClosed
		}

		c.mu.Lock()
	}

	snap := e.snapshot(kind)
	c.mu.Unlock()
	return snap, snap.Err
}

// Invalidate marks kind stale and schedules a re-fetch. If a fetch is
// already in flight, exactly one follow-up fetch runs after it.
func (c *Cache) Invalidate(kind store.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(kind)
	e.stale = true
	if e.inFlight {
		e.followUp = true
		return
	}
	c.startFetchLocked(kind, e)
}

// Mutate runs op against the repository and invalidates kind on success.
// Nothing is merged into the cache locally; the re-fetch is the only way
// new data arrives.
func (c *Cache) Mutate(ctx context.Context, kind store.Kind, op Op) (*store.Record, error) {
	rec, err := op(ctx, c.repo, kind)
	if err != nil {
		return nil, err
	}
	c.Invalidate(kind)
	return rec, nil
}

// Subscribe registers for snapshots of kind published after each fetch.
// The channel is closed when ctx is cancelled, on Unsubscribe, or on Close.
func (c *Cache) Subscribe(ctx context.Context, kind store.Kind) (<-chan Snapshot, string) {
	return c.notifier.subscribe(ctx, kind)
}

// Unsubscribe removes a subscription made with Subscribe.
func (c *Cache) Unsubscribe(kind store.Kind, subID string) {
	c.notifier.unsubscribe(kind, subID)
}

// Close stops background fetches and closes all subscriptions.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.notifier.close()
}

// startFetchLocked launches a List for kind. Must be called with mu held.
func (c *Cache) startFetchLocked(kind store.Kind, e *entry) {
	if c.closed {
		return
	}
	e.inFlight = true
	e.started++

	c.wg.Add(1)
	go c.fetch(kind)
}

func (c *Cache) fetch(kind store.Kind) {
	defer c.wg.Done()

	start := c.now()
	records, err := c.repo.List(c.ctx, kind, DefaultSortKey(kind))

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[kind]
	e.inFlight = false
	e.finished++

	if err != nil {
		e.err = err
		c.logger.Warn("fetch failed, keeping cached records",
			"kind", kind,
			"cached", len(e.records),
			"error", err)
	} else {
		e.records = records
		e.loaded = true
		e.err = nil
		e.version++
		e.fetchedAt = c.now()
		c.logger.Debug("fetched",
			"kind", kind,
			"records", len(records),
			"version", e.version,
			"duration", e.fetchedAt.Sub(start))
	}

	if e.followUp {
		e.followUp = false
		c.startFetchLocked(kind, e)
	} else if err == nil {
		e.stale = false
	}

	close(e.resolved)
	e.resolved = make(chan struct{})

	// Published under mu so subscribers see snapshots in fetch order
	c.notifier.publish(e.snapshot(kind))
}
