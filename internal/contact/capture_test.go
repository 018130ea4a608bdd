// ABOUTME: Tests for the contact capture state machine and local fallback log
// ABOUTME: Repository outages are simulated with MockStore failure injection

package contact

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/local"
	"github.com/2389/folio/internal/store"
)

var validForm = Form{Name: "A", Email: "a@x.com", Message: "hi"}

type fixture struct {
	repo     *store.MockStore
	cache    *cache.Cache
	kv       *local.Store
	fallback *FallbackLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := store.NewMockStore()
	c := cache.New(repo, nil)
	t.Cleanup(c.Close)

	kv, err := local.Open(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	return &fixture{repo: repo, cache: c, kv: kv, fallback: NewFallbackLog(kv)}
}

func (f *fixture) capture(sending, sent time.Duration) *Capture {
	return New(f.cache, f.fallback, Options{SendingDelay: sending, SentDisplay: sent})
}

func TestSubmit_CreatesMessage(t *testing.T) {
	f := newFixture(t)
	c := f.capture(0, time.Hour)
	ctx := context.Background()

	res, err := c.Submit(ctx, validForm)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, Sent, c.State())
	assert.Equal(t, Form{}, c.Draft(), "form cleared on success")

	snap, err := f.cache.Load(ctx, store.KindContactMessage)
	require.NoError(t, err)
	msgs := content.Messages(snap.Records)
	require.Len(t, msgs, 1)
	assert.Equal(t, res.ID, msgs[0].ID)
	assert.False(t, msgs[0].Read)

	entries, err := f.fallback.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmit_FallbackWhenUnavailable(t *testing.T) {
	f := newFixture(t)
	f.repo.SetFailure(errors.New("connection refused"))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.repo.OnCall = func(op string, kind store.Kind) {
		if op == store.OpCreate {
			close(entered)
			<-release
		}
	}

	c := f.capture(0, time.Hour)
	assert.Equal(t, Idle, c.State())

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), validForm)
		done <- err
	}()

	<-entered
	assert.Equal(t, Sending, c.State())
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Sent, c.State())

	entries, err := f.fallback.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].Name)
	assert.Equal(t, "a@x.com", entries[0].Email)
	assert.Equal(t, "hi", entries[0].Message)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestSubmit_ValidationBeforeIO(t *testing.T) {
	f := newFixture(t)
	c := f.capture(0, time.Hour)

	_, err := c.Submit(context.Background(), Form{Name: "A", Email: "a@x.com", Message: " "})

	var verr *content.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "message", verr.Field)
	assert.Equal(t, Idle, c.State())
	assert.Zero(t, f.repo.Calls(store.OpCreate, store.KindContactMessage))

	entries, err := f.fallback.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmit_BusyWhileSent(t *testing.T) {
	f := newFixture(t)
	c := f.capture(0, time.Hour)
	ctx := context.Background()

	_, err := c.Submit(ctx, validForm)
	require.NoError(t, err)

	_, err = c.Submit(ctx, validForm)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, f.repo.Calls(store.OpCreate, store.KindContactMessage))

	c.Reset()
	assert.Equal(t, Idle, c.State())
}

func TestSubmit_SentRevertsToIdle(t *testing.T) {
	f := newFixture(t)
	c := f.capture(0, 20*time.Millisecond)

	_, err := c.Submit(context.Background(), validForm)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.State() == Idle }, time.Second, 5*time.Millisecond)
}

func TestSubmit_SendingDelayObserved(t *testing.T) {
	f := newFixture(t)
	c := f.capture(50*time.Millisecond, time.Hour)

	start := time.Now()
	_, err := c.Submit(context.Background(), validForm)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

// failingCreator returns a non-retryable error.
type failingCreator struct{}

func (failingCreator) Mutate(ctx context.Context, kind store.Kind, op cache.Op) (*store.Record, error) {
	return nil, errors.New("rejected")
}

func TestSubmit_OtherFailureKeepsForm(t *testing.T) {
	f := newFixture(t)
	c := New(failingCreator{}, f.fallback, Options{})

	_, err := c.Submit(context.Background(), validForm)
	require.Error(t, err)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, validForm, c.Draft())

	entries, err := f.fallback.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFallbackLog_AppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fallback.Append(ctx, Form{Name: "one"})
	require.NoError(t, err)
	_, err = f.fallback.Append(ctx, Form{Name: "two"})
	require.NoError(t, err)

	entries, err := f.fallback.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Name)
	assert.Equal(t, "two", entries[1].Name)
}

func TestFallbackLog_RefusesCorruptLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, StorageKey, `{"not":"an array"}`))

	_, err := f.fallback.Append(ctx, validForm)
	assert.Error(t, err)

	raw, err := f.kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, `{"not":"an array"}`, raw)
}
