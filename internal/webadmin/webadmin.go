// ABOUTME: Admin web UI package for editing portfolio content
// ABOUTME: Profile, skills, projects and messages tabs with CSRF-protected form posts

package webadmin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/editor"
	"github.com/2389/folio/internal/inbox"
	"github.com/2389/folio/internal/store"
)

const (
	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "folio_admin_csrf"
)

// Tabs of the admin page, in display order.
const (
	TabProfile  = "profile"
	TabSkills   = "skills"
	TabProjects = "projects"
	TabMessages = "messages"
)

var tabs = []string{TabProfile, TabSkills, TabProjects, TabMessages}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Config holds admin UI configuration
type Config struct {
	// SiteURL is where the "View Site" link points. Defaults to "/".
	SiteURL string
}

// Entities is the subset of *cache.Cache the project tab needs.
type Entities interface {
	Load(ctx context.Context, kind store.Kind) (cache.Snapshot, error)
	Mutate(ctx context.Context, kind store.Kind, op cache.Op) (*store.Record, error)
}

// Admin handles admin UI routes
type Admin struct {
	editor   *editor.Controller
	inbox    *inbox.Inbox
	entities Entities
	config   Config
	logger   *slog.Logger
}

// New creates a new Admin handler. Pass nil logger for default.
func New(ed *editor.Controller, ib *inbox.Inbox, entities Entities, cfg Config, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = "/"
	}
	return &Admin{
		editor:   ed,
		inbox:    ib,
		entities: entities,
		config:   cfg,
		logger:   logger.With("component", "admin"),
	}
}

// RegisterRoutes registers all admin routes on the given mux
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin", a.handleDashboard)
	mux.HandleFunc("GET /admin/", a.handleDashboard)

	// Settings buffer
	mux.HandleFunc("POST /admin/profile", a.handleProfile)
	mux.HandleFunc("POST /admin/skills", a.handleSkills)
	mux.HandleFunc("POST /admin/save", a.handleSave)

	// Projects
	mux.HandleFunc("POST /admin/projects", a.handleProjectCreate)
	mux.HandleFunc("POST /admin/projects/{id}", a.handleProjectUpdate)
	mux.HandleFunc("POST /admin/projects/{id}/delete", a.handleProjectDelete)

	// Messages
	mux.HandleFunc("POST /admin/messages/{id}/read", a.handleMessageRead)
	mux.HandleFunc("POST /admin/messages/refresh", a.handleMessagesRefresh)

	a.logger.Info("admin routes registered")
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// handleDashboard renders the tabbed admin page
func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := a.ensureCSRFToken(w, r)

	tab := r.URL.Query().Get("tab")
	if !validTab(tab) {
		tab = TabProfile
	}

	data := dashboardData{
		Title:     "Admin",
		Tab:       tab,
		Tabs:      tabs,
		SiteURL:   a.config.SiteURL,
		CSRFToken: csrfToken,
		Flash:     r.URL.Query().Get("flash"),
		Error:     r.URL.Query().Get("error"),
		Settings:  a.editor.Buffer(),
		State:     a.editor.State().String(),
		CanSave:   a.editor.CanSave(),
	}
	data.SkillsText = FormatSkills(data.Settings.Skills)

	// The unread badge shows on every tab, so messages are always loaded.
	messages, err := a.inbox.Messages(r.Context())
	if err != nil {
		a.logger.Warn("failed to load messages", "error", err)
		data.LoadError = "Messages could not be refreshed; showing the last loaded list."
	}
	data.Messages = messages
	data.Unread = inbox.UnreadCount(messages)

	if tab == TabProjects {
		snap, err := a.entities.Load(r.Context(), store.KindProject)
		if err != nil {
			a.logger.Warn("failed to load projects", "error", err)
			data.LoadError = "Projects could not be refreshed; showing the last loaded list."
		}
		data.Projects = content.Projects(snap.Records)
	}

	a.renderDashboard(w, data)
}

// handleProfile merges the profile form into the edit buffer, saving when
// the "save" button was used.
func (a *Admin) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	a.editor.Edit(profilePatch(r))

	if r.FormValue("action") == "save" {
		a.save(w, r, TabProfile)
		return
	}
	redirect(w, r, TabProfile, "Changes staged", "")
}

// handleSkills replaces the skill categories in the edit buffer
func (a *Admin) handleSkills(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	skills := ParseSkills(r.FormValue("skills"))
	a.editor.Edit(editor.Patch{Skills: &skills})

	if r.FormValue("action") == "save" {
		a.save(w, r, TabSkills)
		return
	}
	redirect(w, r, TabSkills, "Changes staged", "")
}

// handleSave writes the edit buffer
func (a *Admin) handleSave(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	tab := r.FormValue("tab")
	if !validTab(tab) {
		tab = TabProfile
	}
	a.save(w, r, tab)
}

func (a *Admin) save(w http.ResponseWriter, r *http.Request, tab string) {
	err := a.editor.Save(r.Context())

	var verr *content.ValidationError
	var failed *editor.SaveFailed
	switch {
	case err == nil:
		redirect(w, r, tab, "Settings saved", "")
	case errors.As(err, &verr):
		redirect(w, r, tab, "", verr.Error())
	case errors.As(err, &failed):
		a.logger.Error("failed to save settings", "error", err)
		redirect(w, r, tab, "", "Settings could not be saved. Your changes are kept; try again.")
	default:
		a.logger.Error("failed to save settings", "error", err)
		redirect(w, r, tab, "", "Settings could not be saved.")
	}
}

// handleProjectCreate adds a project
func (a *Admin) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	p := projectFromForm(r)
	if err := p.Validate(); err != nil {
		redirect(w, r, TabProjects, "", err.Error())
		return
	}

	rec, err := a.entities.Mutate(r.Context(), store.KindProject, cache.Create(p.Fields()))
	if err != nil {
		a.logger.Error("failed to create project", "error", err)
		redirect(w, r, TabProjects, "", "Project could not be created.")
		return
	}

	a.logger.Info("project created", "id", rec.ID)
	redirect(w, r, TabProjects, "Project added", "")
}

// handleProjectUpdate replaces a project's fields
func (a *Admin) handleProjectUpdate(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Project ID required", http.StatusBadRequest)
		return
	}

	p := projectFromForm(r)
	if err := p.Validate(); err != nil {
		redirect(w, r, TabProjects, "", err.Error())
		return
	}

	if _, err := a.entities.Mutate(r.Context(), store.KindProject, cache.Update(id, p.Fields())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirect(w, r, TabProjects, "", "Project not found.")
			return
		}
		a.logger.Error("failed to update project", "error", err, "project_id", id)
		redirect(w, r, TabProjects, "", "Project could not be updated.")
		return
	}

	a.logger.Info("project updated", "id", id)
	redirect(w, r, TabProjects, "Project updated", "")
}

// handleProjectDelete removes a project
func (a *Admin) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Project ID required", http.StatusBadRequest)
		return
	}

	if _, err := a.entities.Mutate(r.Context(), store.KindProject, cache.Delete(id)); err != nil && !errors.Is(err, store.ErrNotFound) {
		a.logger.Error("failed to delete project", "error", err, "project_id", id)
		redirect(w, r, TabProjects, "", "Project could not be deleted.")
		return
	}

	a.logger.Info("project deleted", "id", id)
	redirect(w, r, TabProjects, "Project deleted", "")
}

// handleMessageRead marks a message read
func (a *Admin) handleMessageRead(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Message ID required", http.StatusBadRequest)
		return
	}

	if err := a.inbox.MarkRead(r.Context(), id); err != nil {
		a.logger.Error("failed to mark message read", "error", err, "message_id", id)
		redirect(w, r, TabMessages, "", "Message could not be marked read.")
		return
	}
	redirect(w, r, TabMessages, "", "")
}

// handleMessagesRefresh schedules a re-fetch of the message list
func (a *Admin) handleMessagesRefresh(w http.ResponseWriter, r *http.Request) {
	if !a.validateCSRF(r) {
		http.Error(w, "Invalid request", http.StatusForbidden)
		return
	}

	a.inbox.Refresh()
	redirect(w, r, TabMessages, "", "")
}

// redirect sends the browser back to a tab with an optional flash or error
func redirect(w http.ResponseWriter, r *http.Request, tab, flash, errMsg string) {
	q := url.Values{}
	q.Set("tab", tab)
	if flash != "" {
		q.Set("flash", flash)
	}
	if errMsg != "" {
		q.Set("error", errMsg)
	}
	http.Redirect(w, r, "/admin?"+q.Encode(), http.StatusSeeOther)
}

func validTab(tab string) bool {
	for _, t := range tabs {
		if t == tab {
			return true
		}
	}
	return false
}

// profilePatch builds a patch from the profile form. Fields missing from
// the form are left unchanged.
func profilePatch(r *http.Request) editor.Patch {
	_ = r.ParseForm()
	field := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}
		return editor.String(strings.TrimSpace(r.PostForm.Get(name)))
	}
	return editor.Patch{
		Name:        field("name"),
		Title:       field("title"),
		Tagline:     field("tagline"),
		Bio:         field("bio"),
		Email:       field("email"),
		PhotoURL:    field("photoUrl"),
		GithubURL:   field("githubUrl"),
		LinkedinURL: field("linkedinUrl"),
		TwitterURL:  field("twitterUrl"),
	}
}

func projectFromForm(r *http.Request) *content.Project {
	return &content.Project{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		ImageURL:    strings.TrimSpace(r.FormValue("imageUrl")),
		Tags:        splitList(r.FormValue("tags")),
		IconRef:     strings.TrimSpace(r.FormValue("iconRef")),
		GradientRef: strings.TrimSpace(r.FormValue("gradientRef")),
	}
}

// ParseSkills reads one category per line in the form "Frontend: React, Go".
// Blank lines are skipped; a line without a colon is a category with no skills.
func ParseSkills(text string) []content.SkillCategory {
	out := []content.SkillCategory{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, content.SkillCategory{Name: name, Skills: splitList(rest)})
	}
	return out
}

// FormatSkills is the inverse of ParseSkills.
func FormatSkills(skills []content.SkillCategory) string {
	var b strings.Builder
	for _, cat := range skills {
		b.WriteString(cat.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(cat.Skills, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
