// ABOUTME: Tests for the public page handlers
// ABOUTME: Covers content rendering, the project limit, theme toggling and contact submissions

package site

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/contact"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/dedupe"
	"github.com/2389/folio/internal/local"
	"github.com/2389/folio/internal/store"
	"github.com/2389/folio/internal/theme"
)

type fixture struct {
	site     *Site
	repo     *store.MockStore
	kv       *local.Store
	fallback *contact.FallbackLog
	mux      *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := store.NewMockStore()
	c := cache.New(repo, nil)
	t.Cleanup(c.Close)

	kv, err := local.Open(ctx, filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	window := dedupe.New(time.Minute, 100)
	t.Cleanup(window.Close)

	fallback := contact.NewFallbackLog(kv)
	s := New(c, theme.New(ctx, kv, nil), Options{
		Contact:  contact.Options{SentDisplay: time.Minute},
		Fallback: fallback,
		Dedupe:   window,
	})
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	return &fixture{site: s, repo: repo, kv: kv, fallback: fallback, mux: mux}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string, cookies ...*http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func (f *fixture) submit(t *testing.T, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return f.do(t, req)
}

func visitorCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == VisitorCookieName {
			return c
		}
	}
	t.Fatal("no visitor cookie set")
	return nil
}

var validForm = url.Values{
	"name":    {"Grace"},
	"email":   {"grace@example.com"},
	"message": {"Hello there"},
}

func TestHome_DefaultsWhenEmpty(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/")

	assert.Contains(t, body, content.DefaultSettings().Name)
	assert.Contains(t, body, "No projects yet.")
	assert.Contains(t, body, `<body class="dark">`)
}

func TestHome_RendersSettingsAndMarkdown(t *testing.T) {
	f := newFixture(t)
	s := content.DefaultSettings()
	s.Name = "Ada Lovelace"
	s.Bio = "Wrote the **first** program.\n\n<script>alert(1)</script>"
	f.repo.Seed(store.KindSettings, s.Fields())

	body := f.get(t, "/")

	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "<strong>first</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "Frontend")
}

func TestHome_LimitsProjects(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < content.HomeProjectLimit+2; i++ {
		f.repo.Seed(store.KindProject, store.Fields{"title": fmt.Sprintf("Project %02d", i)})
	}

	home := f.get(t, "/")
	assert.Equal(t, content.HomeProjectLimit, strings.Count(home, "<article class=\"card"))
	assert.Contains(t, home, "View all 8 projects")
	// Newest first
	assert.Contains(t, home, "Project 07")
	assert.NotContains(t, home, "Project 00")

	all := f.get(t, "/projects")
	assert.Equal(t, content.HomeProjectLimit+2, strings.Count(all, "<article class=\"card"))
}

func TestUnknownPathIsNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTheme_TogglePersists(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.Header.Set("Referer", "http://example.com/projects")
	req.Host = "example.com"
	rec := f.do(t, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/projects", rec.Header().Get("Location"))
	assert.Contains(t, f.get(t, "/"), `<body class="light">`)

	v, err := f.kv.Get(context.Background(), theme.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "light", v)
}

func TestTheme_ForeignRefererGoesHome(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.Header.Set("Referer", "https://evil.example/phish")
	rec := f.do(t, req)

	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestContact_SubmitShowsSent(t *testing.T) {
	f := newFixture(t)

	rec := f.submit(t, validForm)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#contact", rec.Header().Get("Location"))
	assert.Equal(t, 1, f.repo.Calls(store.OpCreate, store.KindContactMessage))

	body := f.get(t, "/", visitorCookie(t, rec))
	assert.Contains(t, body, "Message sent!")

	// Another visitor sees an idle form
	assert.NotContains(t, f.get(t, "/"), "Message sent!")
}

func TestContact_SecondMessageWhileSentIsKept(t *testing.T) {
	f := newFixture(t)

	first := f.submit(t, validForm)
	require.Equal(t, http.StatusSeeOther, first.Code)
	cookie := visitorCookie(t, first)

	sentPage := f.get(t, "/", cookie)
	assert.Contains(t, sentPage, `class="button" disabled`)

	rec := f.submit(t, url.Values{
		"name":    {"Grace"},
		"email":   {"grace@example.com"},
		"message": {"One more thing"},
	}, cookie)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Query().Get("contact_error"))
	assert.Equal(t, 1, f.repo.Calls(store.OpCreate, store.KindContactMessage))

	body := f.get(t, loc.RequestURI(), cookie)
	assert.Contains(t, body, "One more thing")
	assert.Contains(t, body, "Please wait a moment")
}

func TestContact_InvalidKeepsDraft(t *testing.T) {
	f := newFixture(t)

	rec := f.submit(t, url.Values{"name": {"Grace"}, "email": {""}, "message": {"draft text"}})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "Please fill in your email.", loc.Query().Get("contact_error"))
	assert.Zero(t, f.repo.Calls(store.OpCreate, store.KindContactMessage))

	body := f.get(t, loc.RequestURI(), visitorCookie(t, rec))
	assert.Contains(t, body, "draft text")
	assert.Contains(t, body, "Please fill in your email.")
}

func TestContact_DuplicateSuppressed(t *testing.T) {
	f := newFixture(t)

	first := f.submit(t, validForm)
	require.Equal(t, http.StatusSeeOther, first.Code)

	// A second visitor posting the same content within the window
	second := f.submit(t, validForm)
	require.Equal(t, http.StatusSeeOther, second.Code)

	assert.Equal(t, 1, f.repo.Calls(store.OpCreate, store.KindContactMessage))
}

func TestContact_FallbackWhenUnavailable(t *testing.T) {
	f := newFixture(t)
	f.repo.SetFailure(store.ErrRepositoryUnavailable)

	rec := f.submit(t, validForm)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#contact", rec.Header().Get("Location"))

	entries, err := f.fallback.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Grace", entries[0].Name)
}

func TestContact_FailureReleasesDedupe(t *testing.T) {
	f := newFixture(t)
	f.site.opts.Fallback = nil
	f.repo.SetFailure(store.ErrRepositoryUnavailable)

	rec := f.submit(t, validForm)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Query().Get("contact_error"))

	f.repo.SetFailure(nil)
	f.submit(t, validForm, visitorCookie(t, rec))

	assert.Equal(t, 2, f.repo.Calls(store.OpCreate, store.KindContactMessage))
}

func TestVisitorsPruned(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.site.now = func() time.Time { return now }

	f.submit(t, validForm)
	require.Equal(t, 1, f.site.Visitors())

	now = now.Add(2 * visitorTTL)
	f.submit(t, url.Values{"name": {"x"}, "email": {"x@example.com"}, "message": {"other"}})

	assert.Equal(t, 1, f.site.Visitors())
}
