package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/folio/internal/store"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name      string
		settings  PortfolioSettings
		wantField string
	}{
		{"valid", PortfolioSettings{Name: "Ada", Email: "ada@example.com"}, ""},
		{"blank name", PortfolioSettings{Name: "   ", Email: "ada@example.com"}, "name"},
		{"missing email", PortfolioSettings{Name: "Ada"}, "email"},
		{"both missing reports name first", PortfolioSettings{}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestSettingsRoundTripThroughStore(t *testing.T) {
	repo := store.NewMockStore()
	ctx := context.Background()

	in := &PortfolioSettings{
		Name:  "Ada",
		Email: "ada@example.com",
		Skills: []SkillCategory{
			{Name: "Backend", Skills: []string{"Go", "SQL"}},
		},
	}
	rec, err := repo.Create(ctx, store.KindSettings, in.Fields())
	require.NoError(t, err)

	out, err := DecodeSettings(rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, out.ID)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Skills, out.Skills)
}

func TestSettingsCloneIsDeep(t *testing.T) {
	s := DefaultSettings()
	c := s.Clone()
	c.Skills[0].Skills[0] = "Svelte"
	c.Name = "Other"

	assert.Equal(t, "React", s.Skills[0].Skills[0])
	assert.Equal(t, "Your Name", s.Name)
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	rec := &store.Record{ID: "1", Kind: store.KindProject, Fields: []byte(`{"title":"x"}`)}
	_, err := DecodeSettings(rec)
	assert.Error(t, err)
}

func TestDecodeMessageCarriesMetadata(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &store.Record{
		ID:        "m1",
		Kind:      store.KindContactMessage,
		CreatedAt: created,
		Fields:    []byte(`{"name":"A","email":"a@x.com","message":"hi"}`),
	}

	m, err := DecodeMessage(rec)
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, created, m.CreatedAt)
	assert.False(t, m.Read, "missing read flag decodes as unread")
}

func TestFirstSettingsSkipsMalformed(t *testing.T) {
	records := []*store.Record{
		{ID: "bad", Kind: store.KindSettings, Fields: []byte(`{"name":42}`)},
		{ID: "good", Kind: store.KindSettings, Fields: []byte(`{"name":"Ada"}`)},
	}
	s := FirstSettings(records)
	require.NotNil(t, s)
	assert.Equal(t, "good", s.ID)

	assert.Nil(t, FirstSettings(nil))
}

func TestSeed(t *testing.T) {
	repo := store.NewMockStore()
	ctx := context.Background()

	result, err := Seed(ctx, repo)
	require.NoError(t, err)
	assert.True(t, result.Settings)
	assert.Equal(t, 6, result.Projects)

	projects, err := repo.List(ctx, store.KindProject, "-createdAt")
	require.NoError(t, err)
	decoded := Projects(projects)
	require.Len(t, decoded, 6)
	assert.Equal(t, "AI Code Assistant", decoded[0].Title)

	// Second run leaves existing content alone
	result, err = Seed(ctx, repo)
	require.NoError(t, err)
	assert.False(t, result.Settings)
	assert.Zero(t, result.Projects)
}

func TestSeedFailure(t *testing.T) {
	repo := store.NewMockStore()
	repo.SetFailure(errors.New("offline"))

	_, err := Seed(context.Background(), repo)
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
}
