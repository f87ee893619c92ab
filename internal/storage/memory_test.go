package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "sub-123")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := &GoogleUser{
		ID:           "sub-123",
		Email:        "alice@example.com",
		RefreshToken: "refresh-abc",
		Scope:        []string{"email", "profile"},
	}
	require.NoError(t, store.Upsert(ctx, user))

	got, err := store.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	// Mutating the returned value must not affect the stored record
	got.RefreshToken = "tampered"
	again, err := store.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, "refresh-abc", again.RefreshToken)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &GoogleUser{ID: "sub-123", RefreshToken: "old"}))
	require.NoError(t, store.Upsert(ctx, &GoogleUser{ID: "sub-123", RefreshToken: "new", Email: "alice@example.com"}))

	got, err := store.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, "new", got.RefreshToken)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestMemoryStoreListUsers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &GoogleUser{ID: "sub-1"}))
	require.NoError(t, store.Upsert(ctx, &GoogleUser{ID: "sub-2"}))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestGoogleUserStringRedactsSecrets(t *testing.T) {
	user := &GoogleUser{
		ID:           "sub-123",
		Email:        "alice@example.com",
		RefreshToken: "refresh-abc",
		Scope:        []string{"email"},
	}

	s := user.String()
	assert.Contains(t, s, "sub-123")
	assert.NotContains(t, s, "alice@example.com")
	assert.NotContains(t, s, "refresh-abc")
	assert.True(t, strings.Contains(s, "<redacted>"))
}

func TestGoogleUserHasRefreshToken(t *testing.T) {
	assert.False(t, (*GoogleUser)(nil).HasRefreshToken())
	assert.False(t, (&GoogleUser{ID: "sub"}).HasRefreshToken())
	assert.True(t, (&GoogleUser{ID: "sub", RefreshToken: "rt"}).HasRefreshToken())
}
