package cache

import (
	"context"
	"errors"
	"time"

	"github.com/pilab-dev/shadow-auth/domain"
)

var ErrNotFound = errors.New("claims not found")

// ClaimsStore caches the claims of tokens whose signature has already been verified.
// Entries are keyed by the token hash and never outlive the token's own expiry.
type ClaimsStore interface {
	Set(ctx context.Context, token string, claims *domain.TokenClaims) error
	Get(ctx context.Context, token string) (*domain.TokenClaims, error)
	Delete(ctx context.Context, token string) error
	Count(ctx context.Context) int
}

// EntryTTL returns how long claims may stay cached: the remaining token lifetime, capped at maxTTL.
// A non-positive result means the entry must not be stored.
func EntryTTL(claims *domain.TokenClaims, maxTTL time.Duration, now time.Time) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	ttl := claims.ExpiresAt.Sub(now)
	if maxTTL > 0 && ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}
