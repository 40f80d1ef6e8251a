package oauth2flow

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"maps"
	"sort"

	"golang.org/x/oauth2"
)

// Keys of the PKCE values inside an AuthorizationRequest.
const (
	AttrCodeVerifier         = "code_verifier"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
	ChallengeMethodS256      = "S256"
)

const (
	ResponseTypeCode           = "CODE"
	GrantTypeAuthorizationCode = "authorization_code"
)

// AuthorizationRequest is an in-flight authorization code request, kept between the
// redirect to the provider and its callback.
type AuthorizationRequest struct {
	ClientID         string   `json:"clientId"`
	AuthorizationURI string   `json:"authorizationUri"`
	RedirectURI      string   `json:"redirectUri"`
	Scopes           []string `json:"scopes"`
	State            string   `json:"state"`
	ResponseType     string   `json:"responseType"`
	GrantType        string   `json:"grantType"`

	// Attributes stay on the server side; the code verifier lives here.
	Attributes map[string]any `json:"attributes"`
	// AdditionalParameters are appended to the provider authorization URL.
	AdditionalParameters map[string]any `json:"additionalParameters"`
}

// NewAuthorizationRequest starts an authorization code request for the client described by cfg.
func NewAuthorizationRequest(cfg *oauth2.Config, state string) *AuthorizationRequest {
	return &AuthorizationRequest{
		ClientID:             cfg.ClientID,
		AuthorizationURI:     cfg.Endpoint.AuthURL,
		RedirectURI:          cfg.RedirectURL,
		Scopes:               append([]string(nil), cfg.Scopes...),
		State:                state,
		ResponseType:         ResponseTypeCode,
		GrantType:            GrantTypeAuthorizationCode,
		Attributes:           map[string]any{},
		AdditionalParameters: map[string]any{},
	}
}

// GenerateState returns a random, URL-safe state value.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Clone returns a copy whose maps and slices can be modified independently.
func (r *AuthorizationRequest) Clone() *AuthorizationRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Scopes = append([]string(nil), r.Scopes...)
	c.Attributes = maps.Clone(r.Attributes)
	if c.Attributes == nil {
		c.Attributes = map[string]any{}
	}
	c.AdditionalParameters = maps.Clone(r.AdditionalParameters)
	if c.AdditionalParameters == nil {
		c.AdditionalParameters = map[string]any{}
	}
	return &c
}

// CodeVerifier returns the PKCE verifier stored in the request attributes.
func (r *AuthorizationRequest) CodeVerifier() string {
	if r == nil {
		return ""
	}
	v, _ := r.Attributes[AttrCodeVerifier].(string)
	return v
}

// AuthCodeOptions converts the additional parameters into options for
// oauth2.Config.AuthCodeURL. Attributes are never included.
func (r *AuthorizationRequest) AuthCodeOptions() []oauth2.AuthCodeOption {
	if r == nil {
		return nil
	}

	keys := make([]string, 0, len(r.AdditionalParameters))
	for k := range r.AdditionalParameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]oauth2.AuthCodeOption, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, fmt.Sprint(r.AdditionalParameters[k])))
	}
	return opts
}

// AuthCodeURL builds the provider authorization URL for the request.
func (r *AuthorizationRequest) AuthCodeURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL(r.State, r.AuthCodeOptions()...)
}
