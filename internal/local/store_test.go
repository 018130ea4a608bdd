package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesFileWithStrictPerms(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "local.db")
	s, err := Open(context.Background(), p)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestGetSetDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "portfolio-theme")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "portfolio-theme", "light"))
	v, err := s.Get(ctx, "portfolio-theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	require.NoError(t, s.Set(ctx, "portfolio-theme", "dark"))
	v, err = s.Get(ctx, "portfolio-theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	require.NoError(t, s.Delete(ctx, "portfolio-theme"))
	require.NoError(t, s.Delete(ctx, "portfolio-theme"))
	_, err = s.Get(ctx, "portfolio-theme")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	err := s.Update(ctx, "counter", func(current string, exists bool) (string, error) {
		assert.False(t, exists)
		return current + "a", nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, "counter", func(current string, exists bool) (string, error) {
		assert.True(t, exists)
		return current + "b", nil
	})
	require.NoError(t, err)

	v, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	// A failing fn leaves the value untouched
	boom := errors.New("boom")
	err = s.Update(ctx, "counter", func(string, bool) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	v, err = s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "ab", v)
}

func TestPersistsAcrossReopen(t *testing.T) {
	p := filepath.Join(t.TempDir(), "local.db")
	ctx := context.Background()

	s, err := Open(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, p)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestOpenRecordsSchemaVersion(t *testing.T) {
	p := filepath.Join(t.TempDir(), "local.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s, err := Open(ctx, p)
		require.NoError(t, err)

		var ver int
		require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver))
		assert.Equal(t, schemaVersion, ver)
		require.NoError(t, s.Close())
	}
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "k", "v"))
	v, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
