package cache

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsExpiringAt(exp time.Time) *domain.TokenClaims {
	return &domain.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: jwt.NewNumericDate(exp)},
		UserID:           "u",
		Authorities:      "ROLE_USER",
	}
}

func TestMemoryClaimsStore(t *testing.T) {
	store := NewMemoryClaimsStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "token", claimsExpiringAt(time.Now().Add(time.Hour))))
	assert.Equal(t, 1, store.Count(ctx))

	got, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Subject)

	require.NoError(t, store.Delete(ctx, "token"))
	_, err = store.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClaimsStore_IgnoresExpired(t *testing.T) {
	store := NewMemoryClaimsStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "token", claimsExpiringAt(time.Now().Add(-time.Second))))
	_, err := store.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntryTTL(t *testing.T) {
	now := time.Now()

	assert.Equal(t, time.Minute, EntryTTL(claimsExpiringAt(now.Add(time.Hour)), time.Minute, now))
	assert.Equal(t, time.Duration(0), EntryTTL(&domain.TokenClaims{}, time.Minute, now))
	assert.True(t, EntryTTL(claimsExpiringAt(now.Add(-time.Second)), time.Minute, now) <= 0)
}

func TestHashToken(t *testing.T) {
	assert.Len(t, HashToken("abc"), 64)
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}
