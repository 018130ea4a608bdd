// ABOUTME: Typed views over store records: settings, projects and contact messages
// ABOUTME: Decodes record documents and builds field maps for create/update calls

package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2389/folio/internal/store"
)

// ValidationError reports a required field that is empty after trimming.
// It is raised locally and never sent to the repository.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Required returns a ValidationError for the first blank value, in order.
// pairs alternates field name and value.
func Required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &ValidationError{Field: pairs[i]}
		}
	}
	return nil
}

// SkillCategory groups skills under a heading such as "Frontend".
type SkillCategory struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// PortfolioSettings is the site owner's profile. Only one record is used.
type PortfolioSettings struct {
	ID          string          `json:"-"`
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Tagline     string          `json:"tagline"`
	Bio         string          `json:"bio"`
	Email       string          `json:"email"`
	PhotoURL    string          `json:"photoUrl"`
	Skills      []SkillCategory `json:"skills"`
	GithubURL   string          `json:"githubUrl"`
	LinkedinURL string          `json:"linkedinUrl"`
	TwitterURL  string          `json:"twitterUrl"`
}

// Validate checks the fields that must be non-empty whenever persisted.
func (s *PortfolioSettings) Validate() error {
	return Required("name", s.Name, "email", s.Email)
}

// Clone returns a deep copy, including the skill lists.
func (s *PortfolioSettings) Clone() *PortfolioSettings {
	if s == nil {
		return nil
	}
	c := *s
	if s.Skills != nil {
		c.Skills = make([]SkillCategory, len(s.Skills))
		for i, cat := range s.Skills {
			c.Skills[i] = SkillCategory{
				Name:   cat.Name,
				Skills: append([]string(nil), cat.Skills...),
			}
		}
	}
	return &c
}

// Fields returns the full document for a create or update call.
func (s *PortfolioSettings) Fields() store.Fields {
	skills := s.Skills
	if skills == nil {
		skills = []SkillCategory{}
	}
	return store.Fields{
		"name":        s.Name,
		"title":       s.Title,
		"tagline":     s.Tagline,
		"bio":         s.Bio,
		"email":       s.Email,
		"photoUrl":    s.PhotoURL,
		"skills":      skills,
		"githubUrl":   s.GithubURL,
		"linkedinUrl": s.LinkedinURL,
		"twitterUrl":  s.TwitterURL,
	}
}

// Project is a portfolio entry.
type Project struct {
	ID          string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Tags        []string  `json:"tags"`
	IconRef     string    `json:"iconRef"`
	GradientRef string    `json:"gradientRef"`
	CreatedAt   time.Time `json:"-"`
}

// Validate requires a title; everything else is optional.
func (p *Project) Validate() error {
	return Required("title", p.Title)
}

// Fields returns the document for a create or update call.
func (p *Project) Fields() store.Fields {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return store.Fields{
		"title":       p.Title,
		"description": p.Description,
		"imageUrl":    p.ImageURL,
		"tags":        tags,
		"iconRef":     p.IconRef,
		"gradientRef": p.GradientRef,
	}
}

// ContactMessage is a visitor submission from the contact form.
type ContactMessage struct {
	ID        string    `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"-"`
}

// Fields returns the document for a create call. Read is always included so
// new messages start unread.
func (m *ContactMessage) Fields() store.Fields {
	return store.Fields{
		"name":    m.Name,
		"email":   m.Email,
		"message": m.Message,
		"read":    m.Read,
	}
}

// DecodeSettings decodes a Settings record.
func DecodeSettings(rec *store.Record) (*PortfolioSettings, error) {
	var s PortfolioSettings
	if err := decode(rec, store.KindSettings, &s); err != nil {
		return nil, err
	}
	s.ID = rec.ID
	return &s, nil
}

// DecodeProject decodes a Project record.
func DecodeProject(rec *store.Record) (*Project, error) {
	var p Project
	if err := decode(rec, store.KindProject, &p); err != nil {
		return nil, err
	}
	p.ID = rec.ID
	p.CreatedAt = rec.CreatedAt
	return &p, nil
}

// DecodeMessage decodes a ContactMessage record.
func DecodeMessage(rec *store.Record) (*ContactMessage, error) {
	var m ContactMessage
	if err := decode(rec, store.KindContactMessage, &m); err != nil {
		return nil, err
	}
	m.ID = rec.ID
	m.CreatedAt = rec.CreatedAt
	return &m, nil
}

func decode(rec *store.Record, kind store.Kind, v any) error {
	if rec == nil {
		return fmt.Errorf("decoding %s: nil record", kind)
	}
	if rec.Kind != "" && rec.Kind != kind {
		return fmt.Errorf("decoding %s: record %s has kind %s", kind, rec.ID, rec.Kind)
	}
	if len(rec.Fields) == 0 {
		return nil
	}
	if err := json.Unmarshal(rec.Fields, v); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, rec.ID, err)
	}
	return nil
}

// FirstSettings returns the first decodable settings record, or nil when
// there is none. Extra records are ignored.
func FirstSettings(records []*store.Record) *PortfolioSettings {
	for _, rec := range records {
		if s, err := DecodeSettings(rec); err == nil {
			return s
		}
	}
	return nil
}

// Projects decodes every record, skipping malformed ones. Order is preserved.
func Projects(records []*store.Record) []*Project {
	out := make([]*Project, 0, len(records))
	for _, rec := range records {
		if p, err := DecodeProject(rec); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Messages decodes every record, skipping malformed ones. Order is preserved.
func Messages(records []*store.Record) []*ContactMessage {
	out := make([]*ContactMessage, 0, len(records))
	for _, rec := range records {
		if m, err := DecodeMessage(rec); err == nil {
			out = append(out, m)
		}
	}
	return out
}
