package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// ProviderUserInfo holds the identity attributes the login flow needs from an external provider.
type ProviderUserInfo struct {
	ID            string
	FullName      string
	Email         string
	FirstName     string
	LastName      string
	AvatarURL     string
	EmailVerified bool
}

// Extractor maps a provider's raw attribute payload onto ProviderUserInfo.
type Extractor func(attributes map[string]any) ProviderUserInfo

// AttributeFetcher retrieves the raw user attributes for an access token issued by providerID.
type AttributeFetcher func(ctx context.Context, providerID string, token *oauth2.Token) (map[string]any, error)

// Provider describes an external OAuth2 identity provider.
type Provider struct {
	// ID is the registration key, used in the login and callback paths (e.g. "google").
	ID string

	// Config carries the client credentials, endpoints, scopes and the callback URL.
	Config *oauth2.Config

	// UserInfoURL returns the provider's user info endpoint. It is a func so tests can redirect it.
	UserInfoURL func() string

	Extract Extractor
}

// AuthCodeURL builds the provider authorization URL for state.
func (p *Provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.Config.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := p.Config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeCodeFailed, err)
	}
	return token, nil
}

// FetchAttributes calls the user info endpoint with token and decodes the JSON object it returns.
func (p *Provider) FetchAttributes(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	if p.UserInfoURL == nil {
		return nil, ErrProviderMisconfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFetchUserInfoFailed, resp.StatusCode, string(body))
	}

	var attributes map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&attributes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}

	return attributes, nil
}

func stringAttr(attributes map[string]any, key string) string {
	s, _ := attributes[key].(string)
	return s
}

func boolAttr(attributes map[string]any, key string) bool {
	switch v := attributes[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
