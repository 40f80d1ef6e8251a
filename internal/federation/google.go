package federation

import (
	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"
)

// GoogleProviderID is the registration key of the Google provider.
const GoogleProviderID = "google"

var GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// NewGoogleProvider creates the Google provider. The openid, profile and email scopes
// are always requested.
func NewGoogleProvider(clientID, clientSecret, redirectURL string, scopes ...string) (*Provider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrProviderMisconfigured
	}

	return &Provider{
		ID: GoogleProviderID,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       withScopes(scopes, "openid", "profile", "email"),
			Endpoint:     googleOAuth2.Endpoint,
		},
		UserInfoURL: func() string { return GoogleUserInfoEndpoint },
		Extract:     ExtractGoogleUserInfo,
	}, nil
}

// ExtractGoogleUserInfo reads Google's OpenID Connect user info claims.
func ExtractGoogleUserInfo(attributes map[string]any) ProviderUserInfo {
	return ProviderUserInfo{
		ID:            stringAttr(attributes, "sub"),
		FullName:      stringAttr(attributes, "name"),
		FirstName:     stringAttr(attributes, "given_name"),
		LastName:      stringAttr(attributes, "family_name"),
		Email:         stringAttr(attributes, "email"),
		AvatarURL:     stringAttr(attributes, "picture"),
		EmailVerified: boolAttr(attributes, "email_verified"),
	}
}

func withScopes(scopes []string, required ...string) []string {
	seen := make(map[string]bool, len(scopes)+len(required))
	var out []string
	for _, scope := range append(append([]string(nil), scopes...), required...) {
		if !seen[scope] {
			seen[scope] = true
			out = append(out, scope)
		}
	}
	return out
}
