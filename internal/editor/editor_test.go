// ABOUTME: Tests for the settings edit controller state machine
// ABOUTME: Covers round-trip save, validation, failure recovery and owed saves

package editor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/store"
)

func setup(t *testing.T) (*Controller, *cache.Cache, *store.MockStore) {
	t.Helper()
	repo := store.NewMockStore()
	c := cache.New(repo, nil)
	t.Cleanup(c.Close)
	return New(c, nil), c, repo
}

func writes(repo *store.MockStore) int {
	return repo.Calls(store.OpCreate, store.KindSettings) + repo.Calls(store.OpUpdate, store.KindSettings)
}

func TestSave_RoundTrip(t *testing.T) {
	ed, c, repo := setup(t)
	ctx := context.Background()

	ed.Edit(Patch{Name: String("Ada"), Email: String("ada@example.com"), Title: String("Engineer")})
	assert.Equal(t, Dirty, ed.State())

	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, Clean, ed.State())
	assert.Equal(t, 1, repo.Calls(store.OpCreate, store.KindSettings))
	assert.NotEmpty(t, ed.RecordID())

	snap, err := c.Load(ctx, store.KindSettings)
	require.NoError(t, err)
	got := content.FirstSettings(snap.Records)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "Engineer", got.Title)

	// Second save updates in place rather than creating another record
	ed.Edit(Patch{Tagline: String("Hello")})
	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, 1, repo.Calls(store.OpCreate, store.KindSettings))
	assert.Equal(t, 1, repo.Calls(store.OpUpdate, store.KindSettings))

	snap, err = c.Load(ctx, store.KindSettings)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Hello", content.FirstSettings(snap.Records).Tagline)
}

func TestSave_UpdatesLoadedRecord(t *testing.T) {
	ed, _, repo := setup(t)
	rec := repo.Seed(store.KindSettings, store.Fields{"name": "Ada", "email": "ada@example.com"})

	s, err := content.DecodeSettings(rec)
	require.NoError(t, err)
	require.True(t, ed.Load(s))

	ed.Edit(Patch{Bio: String("Writes Go")})
	require.NoError(t, ed.Save(context.Background()))

	assert.Zero(t, repo.Calls(store.OpCreate, store.KindSettings))
	assert.Equal(t, 1, repo.Calls(store.OpUpdate, store.KindSettings))
	assert.Equal(t, rec.ID, ed.RecordID())
}

func TestSave_ValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		field string
	}{
		{"missing name", Patch{Email: String("ada@example.com")}, "name"},
		{"whitespace email", Patch{Name: String("Ada"), Email: String("  ")}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed, _, repo := setup(t)
			ed.Edit(tt.patch)
			before := ed.Buffer()

			err := ed.Save(context.Background())

			var verr *content.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, writes(repo))
			assert.Equal(t, Dirty, ed.State())
			assert.Equal(t, before, ed.Buffer())
		})
	}
}

func TestSave_FailureKeepsBuffer(t *testing.T) {
	ed, _, repo := setup(t)
	repo.SetFailure(errors.New("503"))

	ed.Edit(Patch{Name: String("Ada"), Email: String("ada@example.com")})
	err := ed.Save(context.Background())

	var failed *SaveFailed
	require.True(t, errors.As(err, &failed))
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
	assert.Equal(t, Dirty, ed.State())
	assert.Equal(t, "Ada", ed.Buffer().Name)
	assert.True(t, ed.CanSave())
	// Without knowing whether a record exists, nothing is created
	assert.Zero(t, repo.Calls(store.OpCreate, store.KindSettings))

	// Retry succeeds once the store is back
	repo.SetFailure(nil)
	require.NoError(t, ed.Save(context.Background()))
	assert.Equal(t, Clean, ed.State())
}

func TestSave_CleanIsNoop(t *testing.T) {
	ed, _, repo := setup(t)
	rec := repo.Seed(store.KindSettings, store.Fields{"name": "Ada", "email": "ada@example.com"})
	s, err := content.DecodeSettings(rec)
	require.NoError(t, err)
	ed.Load(s)

	require.NoError(t, ed.Save(context.Background()))
	assert.Zero(t, writes(repo))
	assert.False(t, ed.CanSave())
}

func TestLoad_IgnoredWhileDirty(t *testing.T) {
	ed, _, _ := setup(t)
	ed.Edit(Patch{Name: String("Local")})

	applied := ed.Load(&content.PortfolioSettings{ID: "r1", Name: "Remote"})
	assert.False(t, applied)
	assert.Equal(t, "Local", ed.Buffer().Name)
	assert.Equal(t, "r1", ed.RecordID())
}

func settingsCount(t *testing.T, repo *store.MockStore) int {
	t.Helper()
	records, err := repo.List(context.Background(), store.KindSettings, "")
	require.NoError(t, err)
	return len(records)
}

func TestSave_EditBeforeFirstFetchUpdatesExisting(t *testing.T) {
	ed, _, repo := setup(t)
	rec := repo.Seed(store.KindSettings, store.Fields{"name": "Ada", "email": "ada@example.com"})

	// Nothing has been loaded into the controller yet
	ed.Edit(Patch{Name: String("Ada Lovelace"), Email: String("ada@example.com")})
	require.NoError(t, ed.Save(context.Background()))

	assert.Zero(t, repo.Calls(store.OpCreate, store.KindSettings))
	assert.Equal(t, 1, repo.Calls(store.OpUpdate, store.KindSettings))
	assert.Equal(t, rec.ID, ed.RecordID())
	assert.Equal(t, 1, settingsCount(t, repo))
}

func TestSave_AfterFailedFirstFetchUpdatesExisting(t *testing.T) {
	ed, c, repo := setup(t)
	ctx := context.Background()
	repo.Seed(store.KindSettings, store.Fields{"name": "Ada", "email": "ada@example.com"})

	repo.SetFailure(errors.New("connection refused"))
	_, err := c.Load(ctx, store.KindSettings)
	require.Error(t, err)
	repo.SetFailure(nil)

	ed.Edit(Patch{Name: String("Ada"), Email: String("ada@example.com"), Bio: String("Back online")})
	require.NoError(t, ed.Save(ctx))

	assert.Zero(t, repo.Calls(store.OpCreate, store.KindSettings))
	assert.Equal(t, 1, repo.Calls(store.OpUpdate, store.KindSettings))
	assert.Equal(t, 1, settingsCount(t, repo))
}

func TestEditWhileSaving_IssuesExactlyOneMoreUpdate(t *testing.T) {
	ed, c, repo := setup(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.OnCall = func(op string, kind store.Kind) {
		if op == store.OpCreate && kind == store.KindSettings {
			close(entered)
			<-release
		}
	}

	ed.Edit(Patch{Name: String("Ada"), Email: String("ada@example.com")})

	done := make(chan error, 1)
	go func() { done <- ed.Save(ctx) }()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("save never reached the repository")
	}

	assert.Equal(t, Saving, ed.State())
	assert.False(t, ed.CanSave())

	ed.Edit(Patch{Title: String("Engineer")})
	// A second save while one is in flight is queued, not issued
	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, 1, writes(repo))

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("save did not finish")
	}

	assert.Equal(t, Clean, ed.State())
	assert.Equal(t, 1, repo.Calls(store.OpCreate, store.KindSettings))
	assert.Equal(t, 1, repo.Calls(store.OpUpdate, store.KindSettings))

	snap, err := c.Load(ctx, store.KindSettings)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(snap.Records[0].Fields, &doc))
	assert.Equal(t, "Engineer", doc["title"])
}

func TestCanSave(t *testing.T) {
	ed, _, _ := setup(t)
	assert.False(t, ed.CanSave(), "clean")

	ed.Edit(Patch{Name: String("x")})
	assert.True(t, ed.CanSave(), "dirty")
}

func TestWatch_LoadsSettingsSnapshots(t *testing.T) {
	ed, c, repo := setup(t)
	repo.Seed(store.KindSettings, store.Fields{"name": "Ada", "email": "ada@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ed.Watch(ctx, c)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return ed.Buffer().Name == "Ada"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, Clean, ed.State())
	assert.NotEmpty(t, ed.RecordID())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop on cancel")
	}
}
