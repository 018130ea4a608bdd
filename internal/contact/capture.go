// ABOUTME: Contact form submission state machine: Idle, Sending, Sent
// ABOUTME: Creates a ContactMessage or, when the repository is down, captures it locally

package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/store"
)

// Default pacing for the visitor-facing states.
const (
	DefaultSendingDelay = 800 * time.Millisecond
	DefaultSentDisplay  = 3 * time.Second
)

// ErrBusy is returned when a submission arrives while Sending or Sent.
var ErrBusy = errors.New("contact form busy")

// State is the form's submission state.
type State int

const (
	Idle State = iota
	Sending
	Sent
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Sent:
		return "sent"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Form is the visitor's input.
type Form struct {
	Name    string
	Email   string
	Message string
}

// Validate requires every field.
func (f Form) Validate() error {
	return content.Required("name", f.Name, "email", f.Email, "message", f.Message)
}

// Creator runs a mutation through the entity cache. *cache.Cache satisfies it.
type Creator interface {
	Mutate(ctx context.Context, kind store.Kind, op cache.Op) (*store.Record, error)
}

// Result describes where a submitted message ended up. Visitors see the
// same outcome either way.
type Result struct {
	ID       string
	Fallback bool
}

// Options configures a Capture.
type Options struct {
	// SendingDelay is the minimum time spent in Sending.
	SendingDelay time.Duration
	// SentDisplay is how long Sent lasts before reverting to Idle.
	SentDisplay time.Duration
	Logger      *slog.Logger
}

// Capture is one visitor's contact form.
type Capture struct {
	creator      Creator
	fallback     *FallbackLog
	sendingDelay time.Duration
	sentDisplay  time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	state  State
	draft  Form
	gen    uint64
	revert *time.Timer
}

// New creates an Idle capture. fallback may be nil, in which case
// repository failures are returned to the caller.
func New(creator Creator, fallback *FallbackLog, opts Options) *Capture {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{
		creator:      creator,
		fallback:     fallback,
		sendingDelay: opts.SendingDelay,
		sentDisplay:  opts.SentDisplay,
		logger:       logger.With("component", "contact"),
		now:          time.Now,
	}
}

// State returns the current state.
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns the form buffer. It is cleared after a successful submit
// and kept after a failed one.
func (c *Capture) Draft() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the form buffer without submitting.
func (c *Capture) SetDraft(f Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = f
}

// Submit sends f. Invalid input is rejected before any I/O. A repository
// outage diverts the message to the fallback log and still counts as sent.
func (c *Capture) Submit(ctx context.Context, f Form) (Result, error) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return Result{}, ErrBusy
	}
	c.draft = f
	if err := f.Validate(); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}
	c.state = Sending
	c.mu.Unlock()

	start := c.now()
	result, err := c.send(ctx, f)
	c.pace(ctx, start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state = Idle
		c.logger.Warn("contact submission failed", "error", err)
		return Result{}, err
	}

	c.state = Sent
	c.draft = Form{}
	c.gen++
	gen := c.gen
	c.revert = time.AfterFunc(c.sentDisplay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen && c.state == Sent {
			c.state = Idle
		}
	})

	c.logger.Info("contact message received", "id", result.ID, "fallback", result.Fallback)
	return result, nil
}

func (c *Capture) send(ctx context.Context, f Form) (Result, error) {
	msg := &content.ContactMessage{Name: f.Name, Email: f.Email, Message: f.Message}
	rec, err := c.creator.Mutate(ctx, store.KindContactMessage, cache.Create(msg.Fields()))
	if err == nil {
		return Result{ID: rec.ID}, nil
	}
	if c.fallback == nil || !errors.Is(err, store.ErrRepositoryUnavailable) {
		return Result{}, fmt.Errorf("creating contact message: %w", err)
	}

	c.logger.Warn("repository unavailable, capturing message locally", "error", err)
	entry, ferr := c.fallback.Append(ctx, f)
	if ferr != nil {
		return Result{}, errors.Join(err, ferr)
	}
	return Result{ID: entry.ID, Fallback: true}, nil
}

// pace holds Sending for at least sendingDelay since start.
func (c *Capture) pace(ctx context.Context, start time.Time) {
	remaining := c.sendingDelay - c.now().Sub(start)
	if remaining <= 0 {
		return
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Reset cancels a pending Sent display and returns to Idle.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
	if c.state == Sent {
		c.state = Idle
	}
	c.gen++
}
