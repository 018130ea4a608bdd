package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/store"
)

func setup(t *testing.T) (*Inbox, *store.MockStore) {
	t.Helper()
	repo := store.NewMockStore()
	c := cache.New(repo, nil)
	t.Cleanup(c.Close)
	return New(c, nil), repo
}

func TestUnreadCount(t *testing.T) {
	msgs := []*content.ContactMessage{
		{Read: false}, {Read: true}, {Read: false}, {Read: false},
	}
	assert.Equal(t, 3, UnreadCount(msgs))
	assert.Zero(t, UnreadCount(nil))
}

func TestMarkRead_DecrementsUnread(t *testing.T) {
	in, repo := setup(t)
	ctx := context.Background()

	var target string
	for i, read := range []bool{false, true, false, false} {
		rec := repo.Seed(store.KindContactMessage, store.Fields{
			"name":    "visitor",
			"email":   "v@example.com",
			"message": "hello",
			"read":    read,
		})
		if i == 0 {
			target = rec.ID
		}
	}

	n, err := in.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, in.MarkRead(ctx, target))

	n, err = in.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMarkRead_Idempotent(t *testing.T) {
	in, repo := setup(t)
	ctx := context.Background()

	rec := repo.Seed(store.KindContactMessage, store.Fields{"name": "A", "read": false})
	_, err := in.Messages(ctx)
	require.NoError(t, err)

	require.NoError(t, in.MarkRead(ctx, rec.ID))
	_, err = in.Messages(ctx)
	require.NoError(t, err)

	require.NoError(t, in.MarkRead(ctx, rec.ID))
	assert.Equal(t, 1, repo.Calls(store.OpUpdate, store.KindContactMessage))

	msgs, err := in.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}

func TestMarkRead_Missing(t *testing.T) {
	in, _ := setup(t)

	err := in.MarkRead(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessages_NewestFirst(t *testing.T) {
	in, repo := setup(t)
	repo.Seed(store.KindContactMessage, store.Fields{"name": "first"})
	repo.Seed(store.KindContactMessage, store.Fields{"name": "second"})

	msgs, err := in.Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Name)
}

func TestMessages_FailureKeepsCachedList(t *testing.T) {
	in, repo := setup(t)
	ctx := context.Background()
	repo.Seed(store.KindContactMessage, store.Fields{"name": "A"})

	_, err := in.Messages(ctx)
	require.NoError(t, err)

	repo.SetFailure(errors.New("offline"))
	in.Refresh()

	msgs, err := in.Messages(ctx)
	assert.ErrorIs(t, err, store.ErrRepositoryUnavailable)
	assert.Len(t, msgs, 1)
}
