// ABOUTME: Public portfolio pages: home, full project list, contact form and theme toggle
// ABOUTME: Reads content from the entity cache and keeps one contact form per visitor cookie

package site

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/contact"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/dedupe"
	"github.com/2389/folio/internal/store"
	"github.com/2389/folio/internal/theme"
)

const (
	// VisitorCookieName identifies a visitor's contact form across requests.
	VisitorCookieName = "folio_visitor"

	// visitorTTL is how long an idle visitor's form state is kept.
	visitorTTL = time.Hour
)

// Entities is the subset of *cache.Cache the site needs.
type Entities interface {
	Load(ctx context.Context, kind store.Kind) (cache.Snapshot, error)
	Mutate(ctx context.Context, kind store.Kind, op cache.Op) (*store.Record, error)
}

// Options configures a Site.
type Options struct {
	// Contact sets the form's sending and sent timings.
	Contact contact.Options
	// Fallback receives messages while the repository is unavailable. May be nil.
	Fallback *contact.FallbackLog
	// Dedupe suppresses repeated identical submissions. May be nil.
	Dedupe *dedupe.Window
	Logger *slog.Logger
}

type visitor struct {
	capture  *contact.Capture
	lastSeen time.Time
}

// Site serves the public pages.
type Site struct {
	entities Entities
	theme    *theme.Store
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// New creates a Site.
func New(entities Entities, th *theme.Store, opts Options) *Site {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Contact.Logger = logger
	return &Site{
		entities: entities,
		theme:    th,
		opts:     opts,
		logger:   logger.With("component", "site"),
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// RegisterRoutes registers the public routes on the given mux
func (s *Site) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /projects", s.handleProjects)
	mux.HandleFunc("POST /contact", s.handleContact)
	mux.HandleFunc("POST /theme", s.handleTheme)
}

// settings returns the stored profile, or the defaults before one is saved.
func (s *Site) settings(ctx context.Context) *content.PortfolioSettings {
	snap, err := s.entities.Load(ctx, store.KindSettings)
	if err != nil {
		s.logger.Warn("failed to load settings", "error", err)
	}
	if st := content.FirstSettings(snap.Records); st != nil {
		return st
	}
	return content.DefaultSettings()
}

func (s *Site) projects(ctx context.Context) []*content.Project {
	snap, err := s.entities.Load(ctx, store.KindProject)
	if err != nil {
		s.logger.Warn("failed to load projects", "error", err)
	}
	return content.Projects(snap.Records)
}

// handleHome renders hero, about, the first projects, skills and contact
func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	settings := s.settings(r.Context())
	projects := s.projects(r.Context())

	data := s.page(r, settings.Name)
	data.Settings = settings
	data.Bio = s.markdown(settings.Bio)
	data.TotalProjects = len(projects)
	if len(projects) > content.HomeProjectLimit {
		projects = projects[:content.HomeProjectLimit]
	}
	data.Projects = s.projectViews(projects)
	data.Contact = s.contactView(r)

	s.render(w, "home.html", data)
}

// handleProjects renders every project
func (s *Site) handleProjects(w http.ResponseWriter, r *http.Request) {
	settings := s.settings(r.Context())
	projects := s.projects(r.Context())

	data := s.page(r, "Projects · "+settings.Name)
	data.Settings = settings
	data.TotalProjects = len(projects)
	data.Projects = s.projectViews(projects)

	s.render(w, "projects.html", data)
}

// handleContact submits the contact form for the requesting visitor
func (s *Site) handleContact(w http.ResponseWriter, r *http.Request) {
	capture := s.captureFor(w, r)
	form := contact.Form{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}

	key := dedupe.Fingerprint(form.Name, form.Email, form.Message)
	if s.opts.Dedupe != nil && form.Validate() == nil && !s.opts.Dedupe.Claim(key) {
		s.logger.Debug("duplicate contact submission suppressed")
		redirectContact(w, r, "")
		return
	}

	_, err := capture.Submit(r.Context(), form)
	if err == nil {
		redirectContact(w, r, "")
		return
	}
	if s.opts.Dedupe != nil {
		s.opts.Dedupe.Release(key)
	}

	var verr *content.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectContact(w, r, "Please fill in your "+verr.Field+".")
	case errors.Is(err, contact.ErrBusy):
		// The form is still Sending or showing Sent; keep what was typed
		capture.SetDraft(form)
		redirectContact(w, r, "Please wait a moment before sending another message.")
	default:
		s.logger.Error("contact submission failed", "error", err)
		redirectContact(w, r, "Your message could not be sent. Please try again.")
	}
}

// handleTheme flips the theme and returns to the page that asked
func (s *Site) handleTheme(w http.ResponseWriter, r *http.Request) {
	dark := s.theme.Toggle(r.Context())
	s.logger.Debug("theme toggled", "theme", theme.Class(dark))

	target := "/"
	if ref, err := url.Parse(r.Header.Get("Referer")); err == nil && ref.Path != "" && ref.Host == r.Host {
		target = ref.Path
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectContact(w http.ResponseWriter, r *http.Request, errMsg string) {
	target := "/"
	if errMsg != "" {
		target += "?" + url.Values{"contact_error": {errMsg}}.Encode()
	}
	http.Redirect(w, r, target+"#contact", http.StatusSeeOther)
}

// captureFor returns the requesting visitor's contact form, issuing a
// visitor cookie on first use.
func (s *Site) captureFor(w http.ResponseWriter, r *http.Request) *contact.Capture {
	id := ""
	if c, err := r.Cookie(VisitorCookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	v, ok := s.visitors[id]
	if !ok {
		v = &visitor{capture: contact.New(s.entities, s.opts.Fallback, s.opts.Contact)}
		s.visitors[id] = v
	}
	v.lastSeen = now
	return v.capture
}

// peekCapture returns the visitor's form without creating one.
func (s *Site) peekCapture(r *http.Request) *contact.Capture {
	c, err := r.Cookie(VisitorCookieName)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[c.Value]
	if !ok {
		return nil
	}
	v.lastSeen = s.now()
	return v.capture
}

func (s *Site) pruneLocked(now time.Time) {
	for id, v := range s.visitors {
		if now.Sub(v.lastSeen) > visitorTTL && v.capture.State() != contact.Sending {
			v.capture.Reset()
			delete(s.visitors, id)
		}
	}
}

// Visitors returns how many contact forms are being tracked.
func (s *Site) Visitors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}
