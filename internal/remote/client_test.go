// ABOUTME: Tests for the remote repository client against a live entity API
// ABOUTME: Round-trips through httptest servers backed by SQLite and MockStore

package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/folio/internal/api"
	"github.com/2389/folio/internal/store"
)

// Compile-time interface check
var _ store.Repository = (*Client)(nil)

func newServer(t *testing.T, repo store.Repository) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.New(repo, nil).RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RoundTripAgainstSQLite(t *testing.T) {
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := newServer(t, db)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Create(ctx, store.KindProject, store.Fields{"title": "first", "tags": []string{"Go"}})
	require.NoError(t, err)
	_, err = c.Create(ctx, store.KindProject, store.Fields{"title": "second"})
	require.NoError(t, err)

	updated, err := c.Update(ctx, store.KindProject, first.ID, store.Fields{"description": "desc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"desc","tags":["Go"],"title":"first"}`, string(updated.Fields))

	records, err := c.List(ctx, store.KindProject, "-createdAt")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[1].ID)

	require.NoError(t, c.Delete(ctx, store.KindProject, first.ID))
	assert.ErrorIs(t, c.Delete(ctx, store.KindProject, first.ID), store.ErrNotFound)

	require.NoError(t, c.Health(ctx))
}

func TestClient_StoreFailureIsUnavailable(t *testing.T) {
	repo := store.NewMockStore()
	repo.SetFailure(errors.New("disk full"))
	srv := newServer(t, repo)

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.List(context.Background(), store.KindSettings, "")
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.Create(context.Background(), store.KindContactMessage, store.Fields{"name": "A"})
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.List(context.Background(), store.KindProject, "")
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
}

func TestClient_CanceledKeepsCause(t *testing.T) {
	srv := newServer(t, store.NewMockStore())
	c, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.List(ctx, store.KindProject, "")
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_BadRequestIsNotUnavailable(t *testing.T) {
	srv := newServer(t, store.NewMockStore())
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.List(context.Background(), store.Kind("User"), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrRepositoryUnavailable)
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://example.com", "http://"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}
}
