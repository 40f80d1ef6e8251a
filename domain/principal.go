package domain

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is an authenticated identity, built from a User or from validated token claims.
type Principal struct {
	UserID       uuid.UUID      `json:"id"`
	ProfileID    *uuid.UUID     `json:"profileId,omitempty"`
	AdvertiserID *uuid.UUID     `json:"advertiserId,omitempty"`
	Username     string         `json:"username"`
	Authorities  []string       `json:"authorities"`
	Attributes   map[string]any `json:"-"`
}

// NewPrincipal builds a principal from a stored user. Malformed linked ids are dropped.
func NewPrincipal(user *User, attributes map[string]any) (*Principal, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, err
	}
	return &Principal{
		UserID:       userID,
		ProfileID:    parseOptionalID(user.ProfileID),
		AdvertiserID: parseOptionalID(user.AdvertiserID),
		Username:     user.Email,
		Authorities:  user.Authorities(),
		Attributes:   attributes,
	}, nil
}

// HasAuthority reports whether the principal was granted the given authority.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

func parseOptionalID(id *string) *uuid.UUID {
	if id == nil || *id == "" {
		return nil
	}
	parsed, err := uuid.Parse(*id)
	if err != nil {
		return nil
	}
	return &parsed
}

// TokenClaims is the claim set of a session token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Authorities  string `json:"authorities"`
	UserID       string `json:"userId"`
	ProfileID    string `json:"profileId"`
	AdvertiserID string `json:"advertiserId"`
}
