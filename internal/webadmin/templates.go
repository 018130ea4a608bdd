// ABOUTME: Template rendering functions for admin UI
// ABOUTME: Loads templates from embedded filesystem and renders them

package webadmin

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/2389/folio/internal/assets"
	"github.com/2389/folio/internal/content"
)

// Template data types
type dashboardData struct {
	Title     string
	Tab       string
	Tabs      []string
	SiteURL   string
	CSRFToken string
	Flash     string
	Error     string
	LoadError string

	Settings   *content.PortfolioSettings
	SkillsText string
	State      string
	CanSave    bool

	Projects []*content.Project
	Messages []*content.ContactMessage
	Unread   int
}

var templateFuncs = template.FuncMap{
	"asset": assets.URL,
	"join":  strings.Join,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	},
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html", "templates/"+name))
}

// renderDashboard renders the tabbed admin page
func (a *Admin) renderDashboard(w http.ResponseWriter, data dashboardData) {
	tmpl := parsePage("dashboard.html")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render dashboard", "error", err)
	}
}
