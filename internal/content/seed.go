// ABOUTME: Seeds an empty repository with the default profile and projects
// ABOUTME: Existing content is never overwritten

package content

import (
	"context"
	"fmt"

	"github.com/2389/folio/internal/store"
)

// SeedResult reports what Seed inserted.
type SeedResult struct {
	Settings bool
	Projects int
}

// Seed inserts DefaultSettings when no settings record exists and
// DefaultProjects when there are no projects. Each kind is checked
// independently so a partly populated store is filled in, not replaced.
func Seed(ctx context.Context, repo store.Repository) (SeedResult, error) {
	var result SeedResult

	settings, err := repo.List(ctx, store.KindSettings, "")
	if err != nil {
		return result, fmt.Errorf("listing settings: %w", err)
	}
	if len(settings) == 0 {
		if _, err := repo.Create(ctx, store.KindSettings, DefaultSettings().Fields()); err != nil {
			return result, fmt.Errorf("creating settings: %w", err)
		}
		result.Settings = true
	}

	projects, err := repo.List(ctx, store.KindProject, "")
	if err != nil {
		return result, fmt.Errorf("listing projects: %w", err)
	}
	if len(projects) == 0 {
		for _, p := range DefaultProjects() {
			if _, err := repo.Create(ctx, store.KindProject, p.Fields()); err != nil {
				return result, fmt.Errorf("creating project %q: %w", p.Title, err)
			}
			result.Projects++
		}
	}

	return result, nil
}
