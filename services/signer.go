package services

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidKeyID = errors.New("invalid key id")

// DefaultKeyID names the signer used when no key id is requested.
const DefaultKeyID = "default"

type TokenSignerFunc func(claims jwt.Claims) (string, error)

type TokenSigner struct {
	keys map[string]TokenSignerFunc
}

// NewTokenSigner creates a new Signer instance
func NewTokenSigner() *TokenSigner {
	return &TokenSigner{
		keys: make(map[string]TokenSignerFunc),
	}
}

// AddRSAKeySigner registers an RS512 signer under keyID. An empty keyID registers the default signer.
func (s *TokenSigner) AddRSAKeySigner(keyID string, key *rsa.PrivateKey) {
	if keyID == "" {
		keyID = DefaultKeyID
	}
	s.keys[keyID] = func(claims jwt.Claims) (string, error) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS512, claims)
		if keyID != DefaultKeyID {
			token.Header["kid"] = keyID
		}

		tokenString, err := token.SignedString(key)
		if err != nil {
			return "", fmt.Errorf("failed to sign token: %w", err)
		}

		return tokenString, nil
	}
}

func (s *TokenSigner) Sign(claims jwt.Claims, keyID string) (string, error) {
	if keyID == "" {
		keyID = DefaultKeyID
	}

	if signer, ok := s.keys[keyID]; ok {
		return signer(claims)
	}

	return "", ErrInvalidKeyID
}
