package session

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/storage"
	"github.com/hongminglow/agentauth/internal/storage/memory"
	"github.com/hongminglow/agentauth/internal/users"
)

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingStore) Set(context.Context, string, string) error    { return f.err }
func (f failingStore) Delete(context.Context, string) error         { return f.err }

func newHolder(t *testing.T) (*Holder, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(users.NewStatic(), store), store
}

func TestLoginEveryRegisteredUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, want := range users.NewStatic().List() {
		h, store := newHolder(t)

		got, err := h.Login(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		current, ok := h.Current()
		require.True(t, ok)
		assert.Equal(t, want, current)

		persisted, err := store.Get(ctx, StorageKey)
		require.NoError(t, err)
		assert.Equal(t, want.ID, persisted)

		token, ok := h.Token()
		require.True(t, ok)
		expected, _ := auth.DeriveToken(&want)
		assert.Equal(t, expected, token)
	}
}

func TestLoginUnknownLeavesSessionUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("from logged out", func(t *testing.T) {
		h, store := newHolder(t)
		_, err := h.Login(ctx, "unknown")
		assert.ErrorIs(t, err, users.ErrNotFound)

		_, ok := h.Current()
		assert.False(t, ok)
		token, ok := h.Token()
		assert.False(t, ok)
		assert.Empty(t, token)
		_, err = store.Get(ctx, StorageKey)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("from logged in", func(t *testing.T) {
		h, store := newHolder(t)
		_, err := h.Login(ctx, "user-3")
		require.NoError(t, err)
		before, _ := h.Token()

		_, err = h.Login(ctx, "user-42")
		assert.ErrorIs(t, err, users.ErrNotFound)

		current, ok := h.Current()
		require.True(t, ok)
		assert.Equal(t, "user-3", current.ID)
		after, _ := h.Token()
		assert.Equal(t, before, after)
		persisted, err := store.Get(ctx, StorageKey)
		require.NoError(t, err)
		assert.Equal(t, "user-3", persisted)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, store := newHolder(t)
	require.NoError(t, h.Logout(ctx), "logout while logged out")

	_, err := h.Login(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, h.Logout(ctx))

	_, ok := h.Current()
	assert.False(t, ok)
	_, ok = h.Token()
	assert.False(t, ok)
	_, err = store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSwitchUserRecomputesToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h, _ := newHolder(t)

	_, err := h.Login(ctx, "user-1")
	require.NoError(t, err)
	first, _ := h.Token()

	_, err = h.Login(ctx, "user-2")
	require.NoError(t, err)
	second, _ := h.Token()

	assert.NotEqual(t, first, second)
	id, err := auth.DecodeToken(second)
	require.NoError(t, err)
	assert.Equal(t, "user-2", id.UserID)
}

func TestRestoreAfterReload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New()

	first := New(users.NewStatic(), store)
	_, err := first.Login(ctx, "user-2")
	require.NoError(t, err)

	reloaded := New(users.NewStatic(), store)
	_, ok := reloaded.Current()
	assert.False(t, ok, "a fresh holder starts logged out")

	initial, ok := reloaded.InitialUser(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-2", initial.ID)

	restored, ok := reloaded.Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, initial, restored)
	_, ok = reloaded.Token()
	assert.True(t, ok)
}

func TestInitialUserAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h, store := newHolder(t)
	_, ok := h.InitialUser(ctx)
	assert.False(t, ok, "nothing stored")

	require.NoError(t, store.Set(ctx, StorageKey, "user-gone"))
	_, ok = h.InitialUser(ctx)
	assert.False(t, ok, "stale id")
	_, ok = h.Restore(ctx)
	assert.False(t, ok)

	broken := New(users.NewStatic(), failingStore{err: errors.New("boom")})
	_, ok = broken.InitialUser(ctx)
	assert.False(t, ok, "unreadable store")
}

func TestFreshLoginTokenHeader(t *testing.T) {
	t.Parallel()
	h, _ := newHolder(t)

	_, err := h.Login(context.Background(), "user-1")
	require.NoError(t, err)

	token, ok := h.Token()
	require.True(t, ok)
	header, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[0])
	require.NoError(t, err)
	assert.Equal(t, `{"alg":"HS256","typ":"JWT"}`, string(header))
}

func TestStoreFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("disk full")

	h := New(users.NewStatic(), failingStore{err: boom})
	_, err := h.Login(ctx, "user-1")
	assert.ErrorIs(t, err, boom)
	_, ok := h.Current()
	assert.False(t, ok, "failed persist does not log in")

	err = h.Logout(ctx)
	assert.ErrorIs(t, err, boom)
	_, ok = h.Current()
	assert.False(t, ok)

	quiet := New(users.NewStatic(), failingStore{err: storage.ErrNotFound})
	assert.NoError(t, quiet.Logout(ctx))
}
