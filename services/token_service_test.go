package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/crypto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := crypto.GenerateRSAKey()
		if err != nil {
			panic(err)
		}
		testKey = key
	})
	return testKey
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokenService(t *testing.T, issuer string, ttl time.Duration, opts ...TokenServiceOption) (*TokenService, *fakeClock) {
	t.Helper()
	log.Logger = zerolog.Nop()

	key := testPrivateKey(t)
	signer := NewTokenSigner()
	signer.AddRSAKeySigner("", key)

	clock := &fakeClock{t: time.Now()}
	opts = append([]TokenServiceOption{WithClock(clock.Now)}, opts...)

	return NewTokenService(signer, &key.PublicKey, issuer, ttl, opts...), clock
}

func TestTokenService_IssueValidateRoundTrip(t *testing.T) {
	svc, _ := newTestTokenService(t, "app", time.Hour)

	profileID := uuid.New()
	advertiserID := uuid.New()
	p := &domain.Principal{
		UserID:       uuid.New(),
		ProfileID:    &profileID,
		AdvertiserID: &advertiserID,
		Username:     "alice@example.com",
		Authorities:  []string{"ROLE_USER", "ROLE_ADMIN"},
	}

	token, err := svc.Issue(p)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "app", claims.Issuer)
	assert.Equal(t, "ROLE_USER,ROLE_ADMIN", claims.Authorities)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.NotBefore)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))

	got := svc.ToPrincipal(claims)
	require.NotNil(t, got)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, p.Username, got.Username)
	assert.Equal(t, p.Authorities, got.Authorities)
	require.NotNil(t, got.ProfileID)
	assert.Equal(t, profileID, *got.ProfileID)
	require.NotNil(t, got.AdvertiserID)
	assert.Equal(t, advertiserID, *got.AdvertiserID)
}

func TestTokenService_ExampleIssuerApp(t *testing.T) {
	svc, _ := newTestTokenService(t, "app", 2000*time.Millisecond)
	userID := uuid.New()

	token, err := svc.Issue(&domain.Principal{
		UserID:      userID,
		Username:    "bob",
		Authorities: []string{"ROLE_USER"},
	})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ROLE_USER", claims.Authorities)
	assert.Empty(t, claims.ProfileID)
	assert.Empty(t, claims.AdvertiserID)

	p := svc.ToPrincipal(claims)
	require.NotNil(t, p)
	assert.Nil(t, p.ProfileID)
	assert.Nil(t, p.AdvertiserID)
}

func TestTokenService_SubSecondTTL(t *testing.T) {
	svc, clock := newTestTokenService(t, "app", 500*time.Millisecond)
	clock.t = time.Unix(1700000000, 200_000_000)

	token, err := svc.Issue(&domain.Principal{UserID: uuid.New(), Username: "bob", Authorities: []string{"ROLE_USER"}})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), claims.IssuedAt.Unix())
	assert.Equal(t, int64(1700000001), claims.ExpiresAt.Unix())
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))

	clock.Advance(time.Second)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_ExpiredToken(t *testing.T) {
	svc, clock := newTestTokenService(t, "app", 2*time.Second)

	token, err := svc.Issue(&domain.Principal{UserID: uuid.New(), Username: "bob", Authorities: []string{"ROLE_USER"}})
	require.NoError(t, err)

	clock.Advance(5 * time.Second)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Equal(t, serrors.KindUnauthorized, serrors.KindOf(err))
}

func TestTokenService_TamperedSignature(t *testing.T) {
	svc, _ := newTestTokenService(t, "app", time.Hour)

	token, err := svc.Issue(&domain.Principal{UserID: uuid.New(), Username: "bob", Authorities: []string{"ROLE_USER"}})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for _, i := range []int{0, len(sig) / 2, len(sig) - 1} {
		tampered := append([]byte(nil), sig...)
		tampered[i] ^= 0x01
		forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(tampered)

		_, err := svc.Validate(forged)
		assert.ErrorIs(t, err, ErrTokenInvalid, "byte %d", i)
	}
}

func TestTokenService_WrongIssuer(t *testing.T) {
	issuing, _ := newTestTokenService(t, "other", time.Hour)
	validating, _ := newTestTokenService(t, "app", time.Hour)

	token, err := issuing.Issue(&domain.Principal{UserID: uuid.New(), Username: "bob", Authorities: []string{"ROLE_USER"}})
	require.NoError(t, err)

	_, err = validating.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc, _ := newTestTokenService(t, "app", time.Hour)

	claims := jwt.RegisteredClaims{Issuer: "app", Subject: "bob", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, "token invalid, unauthorized", serrors.SafeMessage(err))
}

func TestTokenService_IsValid(t *testing.T) {
	svc, clock := newTestTokenService(t, "app", time.Hour)
	future := jwt.NewNumericDate(clock.Now().Add(time.Minute))

	valid := func() *domain.TokenClaims {
		return &domain.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: future},
			UserID:           uuid.NewString(),
			Authorities:      "ROLE_USER",
		}
	}

	assert.True(t, svc.IsValid(valid()))
	assert.False(t, svc.IsValid(nil))

	tests := map[string]func(c *domain.TokenClaims){
		"missing expiry":     func(c *domain.TokenClaims) { c.ExpiresAt = nil },
		"expired":            func(c *domain.TokenClaims) { c.ExpiresAt = jwt.NewNumericDate(clock.Now().Add(-time.Second)) },
		"blank subject":      func(c *domain.TokenClaims) { c.Subject = "  " },
		"blank user id":      func(c *domain.TokenClaims) { c.UserID = "" },
		"blank authorities":  func(c *domain.TokenClaims) { c.Authorities = "" },
		"optional ids blank": nil,
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			if mutate == nil {
				assert.True(t, svc.IsValid(c))
				return
			}
			mutate(c)
			assert.False(t, svc.IsValid(c))
			assert.Nil(t, svc.ToPrincipal(c))
		})
	}
}

func TestTokenService_AuthenticateUsesClaimsStore(t *testing.T) {
	store := cache.NewMemoryClaimsStore(time.Minute)
	defer store.Close()
	svc, _ := newTestTokenService(t, "app", time.Hour, WithClaimsStore(store))
	ctx := context.Background()

	token, err := svc.Issue(&domain.Principal{UserID: uuid.New(), Username: "bob", Authorities: []string{"ROLE_USER"}})
	require.NoError(t, err)

	p, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, 1, store.Count(ctx))

	cached, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, cached.UserID)

	_, err = svc.Authenticate(ctx, token+"x")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
