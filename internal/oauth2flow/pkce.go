package oauth2flow

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// verifierEntropy is the number of random bytes behind a code verifier; encoded it is
// 128 characters, the maximum RFC 7636 allows.
const verifierEntropy = 96

// ChallengeFunc derives an S256 code challenge from a verifier.
type ChallengeFunc func(verifier string) (string, error)

// PKCECustomizer adds a PKCE verifier and challenge to outgoing authorization requests.
type PKCECustomizer struct {
	random io.Reader
	s256   ChallengeFunc
}

// PKCEOption customizes a PKCECustomizer.
type PKCEOption func(*PKCECustomizer)

// WithRandom sets the entropy source for verifiers.
func WithRandom(r io.Reader) PKCEOption {
	return func(c *PKCECustomizer) {
		c.random = r
	}
}

// WithChallengeFunc replaces the S256 challenge function.
func WithChallengeFunc(f ChallengeFunc) PKCEOption {
	return func(c *PKCECustomizer) {
		c.s256 = f
	}
}

// NewPKCECustomizer creates a new PKCECustomizer.
func NewPKCECustomizer(opts ...PKCEOption) *PKCECustomizer {
	c := &PKCECustomizer{
		random: rand.Reader,
		s256: func(verifier string) (string, error) {
			return oauth2.S256ChallengeFromVerifier(verifier), nil
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateVerifier returns a new code verifier.
func (c *PKCECustomizer) GenerateVerifier() (string, error) {
	b := make([]byte, verifierEntropy)
	if _, err := io.ReadFull(c.random, b); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Customize returns a copy of req carrying a fresh code verifier in its attributes and the
// matching challenge in its additional parameters. When the S256 challenge cannot be computed
// the verifier itself is sent as a plain challenge and no method is set. A nil request is
// returned unchanged.
func (c *PKCECustomizer) Customize(req *AuthorizationRequest) (*AuthorizationRequest, error) {
	if req == nil {
		return nil, nil
	}

	verifier, err := c.GenerateVerifier()
	if err != nil {
		return nil, err
	}

	out := req.Clone()
	out.Attributes[AttrCodeVerifier] = verifier

	challenge, err := c.s256(verifier)
	if err != nil {
		log.Warn().Err(err).Msg("S256 code challenge unavailable, falling back to plain")
		out.AdditionalParameters[ParamCodeChallenge] = verifier
		delete(out.AdditionalParameters, ParamCodeChallengeMethod)
		return out, nil
	}

	out.AdditionalParameters[ParamCodeChallenge] = challenge
	out.AdditionalParameters[ParamCodeChallengeMethod] = ChallengeMethodS256

	return out, nil
}
