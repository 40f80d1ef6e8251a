package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrTokenInvalid is the only error Validate reports to callers. Parser and signature
// failures are logged but never returned.
var ErrTokenInvalid = serrors.NewUnauthorized("token invalid, unauthorized")

// TokenService issues and validates RS512-signed session tokens.
type TokenService struct {
	signer    *TokenSigner
	publicKey *rsa.PublicKey
	issuer    string
	ttl       time.Duration

	cache cache.ClaimsStore
	now   func() time.Time
}

// TokenServiceOption customizes a TokenService.
type TokenServiceOption func(*TokenService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// WithClaimsStore puts a verified-claims cache in front of signature verification.
func WithClaimsStore(store cache.ClaimsStore) TokenServiceOption {
	return func(s *TokenService) {
		s.cache = store
	}
}

// NewTokenService creates a new TokenService instance. The signer must have a default
// key registered whose public half is publicKey.
func NewTokenService(
	signer *TokenSigner,
	publicKey *rsa.PublicKey,
	issuer string,
	ttl time.Duration,
	opts ...TokenServiceOption,
) *TokenService {
	s := &TokenService{
		signer:    signer,
		publicKey: publicKey,
		issuer:    issuer,
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for the principal, valid from now until now+ttl. JWT dates
// have whole-second precision, so the expiry is rounded up to keep it after iat.
func (s *TokenService) Issue(p *domain.Principal) (string, error) {
	now := s.now()
	issuedAt := now.Truncate(time.Second)
	expiresAt := ceilSecond(now.Add(s.ttl))

	claims := &domain.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Authorities:  strings.Join(p.Authorities, ","),
		UserID:       p.UserID.String(),
		ProfileID:    optionalIDString(p.ProfileID),
		AdvertiserID: optionalIDString(p.AdvertiserID),
	}

	token, err := s.signer.Sign(claims, DefaultKeyID)
	if err != nil {
		return "", serrors.NewInternal("failed to issue token", err)
	}

	metrics.TokensIssuedTotal.Inc()

	return token, nil
}

// Validate verifies the signature, issuer and expiry of token and returns its claims.
// Every failure is reported as ErrTokenInvalid.
func (s *TokenService) Validate(token string) (*domain.TokenClaims, error) {
	claims := &domain.TokenClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS512.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		log.Debug().Err(err).Msg("token validation failed")
		metrics.TokenValidationFailuresTotal.Inc()

		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// IsValid reports whether the claims are unexpired and carry a subject, a user id
// and at least one authority.
func (s *TokenService) IsValid(claims *domain.TokenClaims) bool {
	if claims == nil || claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now()) {
		return false
	}
	return !isBlank(claims.Subject) && !isBlank(claims.UserID) && !isBlank(claims.Authorities)
}

// ToPrincipal rebuilds the principal carried by claims. It returns nil when the
// claims are not valid.
func (s *TokenService) ToPrincipal(claims *domain.TokenClaims) *domain.Principal {
	if !s.IsValid(claims) {
		return nil
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}

	p := &domain.Principal{
		UserID:   userID,
		Username: claims.Subject,
	}
	if !isBlank(claims.ProfileID) {
		if id, err := uuid.Parse(claims.ProfileID); err == nil {
			p.ProfileID = &id
		}
	}
	if !isBlank(claims.AdvertiserID) {
		if id, err := uuid.Parse(claims.AdvertiserID); err == nil {
			p.AdvertiserID = &id
		}
	}
	for _, authority := range strings.Split(claims.Authorities, ",") {
		if authority = strings.TrimSpace(authority); authority != "" {
			p.Authorities = append(p.Authorities, authority)
		}
	}

	return p
}

// Authenticate resolves a bearer token into a principal.
func (s *TokenService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if s.cache != nil {
		claims, err := s.cache.Get(ctx, token)
		if err == nil {
			if p := s.ToPrincipal(claims); p != nil {
				return p, nil
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to read claims cache")
		}
	}

	claims, err := s.Validate(token)
	if err != nil {
		return nil, err
	}

	p := s.ToPrincipal(claims)
	if p == nil {
		return nil, ErrTokenInvalid
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, token, claims); err != nil {
			log.Warn().Err(err).Msg("failed to cache token claims")
		}
	}

	return p, nil
}

func optionalIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func ceilSecond(t time.Time) time.Time {
	if truncated := t.Truncate(time.Second); truncated.Before(t) {
		return truncated.Add(time.Second)
	}
	return t
}
