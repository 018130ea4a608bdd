// ABOUTME: Edit buffer for the portfolio settings with a Clean/Dirty/Saving state machine
// ABOUTME: Validates locally, serializes writes and issues one owed save for edits made mid-save

package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/store"
)

// State is the controller's save state.
type State int

const (
	// Clean means the buffer matches the last loaded or saved settings.
	Clean State = iota
	// Dirty means the buffer has unsaved edits.
	Dirty
	// Saving means a write is in flight.
	Saving
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SaveFailed is returned when the repository rejects a save. The buffer is
// kept and the controller returns to Dirty.
type SaveFailed struct {
	Err error
}

func (e *SaveFailed) Error() string {
	return fmt.Sprintf("saving settings: %v", e.Err)
}

func (e *SaveFailed) Unwrap() error {
	return e.Err
}

// Committer runs a mutation and invalidates the cached kind on success.
// Load is consulted before a create so an existing settings record is
// updated instead. *cache.Cache satisfies it.
type Committer interface {
	Load(ctx context.Context, kind store.Kind) (cache.Snapshot, error)
	Mutate(ctx context.Context, kind store.Kind, op cache.Op) (*store.Record, error)
}

// Source provides settings snapshots for Watch. *cache.Cache satisfies it.
type Source interface {
	Get(kind store.Kind) cache.Snapshot
	Subscribe(ctx context.Context, kind store.Kind) (<-chan cache.Snapshot, string)
}

// Patch holds the fields an edit changes. Nil fields are left alone.
type Patch struct {
	Name        *string
	Title       *string
	Tagline     *string
	Bio         *string
	Email       *string
	PhotoURL    *string
	GithubURL   *string
	LinkedinURL *string
	TwitterURL  *string
	Skills      *[]content.SkillCategory
}

// String returns a pointer to v for building a Patch.
func String(v string) *string {
	return &v
}

func (p Patch) applyTo(s *content.PortfolioSettings) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.Name, p.Name)
	set(&s.Title, p.Title)
	set(&s.Tagline, p.Tagline)
	set(&s.Bio, p.Bio)
	set(&s.Email, p.Email)
	set(&s.PhotoURL, p.PhotoURL)
	set(&s.GithubURL, p.GithubURL)
	set(&s.LinkedinURL, p.LinkedinURL)
	set(&s.TwitterURL, p.TwitterURL)
	if p.Skills != nil {
		s.Skills = (&content.PortfolioSettings{Skills: *p.Skills}).Clone().Skills
	}
}

// Controller owns the settings edit buffer. It is safe for concurrent use;
// at most one write is in flight at a time.
type Controller struct {
	committer Committer
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	buffer   *content.PortfolioSettings
	saved    *content.PortfolioSettings
	recordID string
	owed     bool
}

// New creates a Clean controller with an empty buffer. Pass nil logger for default.
func New(committer Committer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		committer: committer,
		logger:    logger.With("component", "editor"),
		buffer:    &content.PortfolioSettings{},
		saved:     &content.PortfolioSettings{},
	}
}

// State returns the current save state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Buffer returns a copy of the edit buffer.
func (c *Controller) Buffer() *content.PortfolioSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Clone()
}

// Saved returns a copy of the last loaded or saved settings.
func (c *Controller) Saved() *content.PortfolioSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved.Clone()
}

// RecordID returns the id of the persisted settings record, or "" before
// the first save or load.
func (c *Controller) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordID
}

// CanSave reports whether the save action should be enabled.
func (c *Controller) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.state == Dirty || c.owed) && c.state != Saving
}

// Load replaces the buffer with s. The buffer only changes while Clean so
// that a refetch never clobbers unsaved edits, but the record ID is always
// taken. Reports whether the buffer was replaced.
func (c *Controller) Load(s *content.PortfolioSettings) bool {
	if s == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.ID != "" && c.recordID == "" {
		c.recordID = s.ID
	}
	if c.state != Clean {
		return false
	}
	c.buffer = s.Clone()
	c.saved = s.Clone()
	return true
}

// Edit merges p into the buffer. A Clean controller becomes Dirty; an edit
// made while Saving owes one more save.
func (c *Controller) Edit(p Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p.applyTo(c.buffer)
	switch c.state {
	case Clean:
		c.state = Dirty
	case Saving:
		c.owed = true
	}
}

// Save validates the buffer and writes it. A validation failure returns a
// *content.ValidationError and touches nothing. A save creates the settings
// record only when the repository holds none; otherwise it updates that
// record with the full buffer. Calling Save
// while a save is in flight returns nil and queues one more save, which the
// in-flight call issues once its write succeeds.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Saving {
		c.owed = true
		c.mu.Unlock()
		return nil
	}
	if err := c.buffer.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state == Clean {
		c.mu.Unlock()
		return nil
	}

	c.state = Saving
	pending := c.buffer.Clone()
	id := c.recordID
	c.mu.Unlock()

	for {
		rec, err := c.commit(ctx, id, pending)

		c.mu.Lock()
		if err != nil {
			c.state = Dirty
			c.owed = false
			c.mu.Unlock()
			c.logger.Warn("settings save failed", "error", err)
			return &SaveFailed{Err: err}
		}

		if rec != nil {
			c.recordID = rec.ID
			pending.ID = rec.ID
		}
		c.saved = pending

		if !c.owed {
			c.state = Clean
			id = c.recordID
			c.mu.Unlock()
			c.logger.Info("settings saved", "id", id)
			return nil
		}

		c.owed = false
		if err := c.buffer.Validate(); err != nil {
			c.state = Dirty
			c.mu.Unlock()
			return err
		}
		pending = c.buffer.Clone()
		id = c.recordID
		c.mu.Unlock()

		c.logger.Debug("issuing owed settings save", "id", id)
	}
}

func (c *Controller) commit(ctx context.Context, id string, s *content.PortfolioSettings) (*store.Record, error) {
	if id == "" {
		// The record may exist without this controller having seen it yet
		snap, err := c.committer.Load(ctx, store.KindSettings)
		if err != nil {
			return nil, fmt.Errorf("checking for existing settings: %w", err)
		}
		if existing := content.FirstSettings(snap.Records); existing != nil {
			id = existing.ID
		}
	}
	if id == "" {
		return c.committer.Mutate(ctx, store.KindSettings, cache.Create(s.Fields()))
	}
	return c.committer.Mutate(ctx, store.KindSettings, cache.Update(id, s.Fields()))
}

// Watch loads the first settings record of every fresh snapshot until ctx
// is done. Snapshots arriving while Dirty or Saving are ignored by Load.
func (c *Controller) Watch(ctx context.Context, src Source) {
	ch, _ := src.Subscribe(ctx, store.KindSettings)
	c.apply(src.Get(store.KindSettings))

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			c.apply(snap)
		}
	}
}

func (c *Controller) apply(snap cache.Snapshot) {
	if snap.Err != nil || !snap.Fresh {
		return
	}
	s := content.FirstSettings(snap.Records)
	if s == nil {
		return
	}
	if c.Load(s) {
		c.logger.Debug("settings loaded", "id", s.ID, "version", snap.Version)
	}
}
