// ABOUTME: Template data and rendering for the public pages
// ABOUTME: Markdown bios and descriptions are rendered with goldmark

package site

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/folio/internal/assets"
	"github.com/2389/folio/internal/contact"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/theme"
)

type pageData struct {
	Title      string
	ThemeClass string
	Dark       bool
	Path       string

	Settings      *content.PortfolioSettings
	Bio           template.HTML
	Projects      []projectView
	TotalProjects int
	Contact       contactView
}

// MoreProjects reports whether the home grid is truncated.
func (d pageData) MoreProjects() bool {
	return d.TotalProjects > len(d.Projects)
}

type projectView struct {
	*content.Project
	DescriptionHTML template.HTML
}

type contactView struct {
	State   string
	Sending bool
	Sent    bool
	Error   string
	Draft   contact.Form
}

var templateFuncs = template.FuncMap{
	"asset": assets.URL,
	"initial": func(name string) string {
		name = strings.TrimSpace(name)
		if name == "" {
			return "?"
		}
		return strings.ToUpper(string([]rune(name)[:1]))
	},
}

func (s *Site) page(r *http.Request, title string) pageData {
	dark := s.theme.Get()
	return pageData{
		Title:      title,
		ThemeClass: theme.Class(dark),
		Dark:       dark,
		Path:       r.URL.Path,
	}
}

func (s *Site) projectViews(projects []*content.Project) []projectView {
	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectView{Project: p, DescriptionHTML: s.markdown(p.Description)})
	}
	return out
}

func (s *Site) contactView(r *http.Request) contactView {
	v := contactView{State: contact.Idle.String(), Error: r.URL.Query().Get("contact_error")}
	if c := s.peekCapture(r); c != nil {
		state := c.State()
		v.State = state.String()
		v.Sending = state == contact.Sending
		v.Sent = state == contact.Sent
		v.Draft = c.Draft()
	}
	return v
}

// markdown renders md to HTML. Raw HTML in the source is dropped by
// goldmark's default renderer.
func (s *Site) markdown(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		s.logger.Error("failed to convert markdown", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(md) + "</p>")
	}
	return template.HTML(buf.String())
}

func (s *Site) render(w http.ResponseWriter, name string, data pageData) {
	tmpl := template.Must(template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html", "templates/"+name))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "page", name, "error", err)
	}
}
