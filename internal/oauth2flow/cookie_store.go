package oauth2flow

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Cookie names and lifetime of the transient login state.
const (
	AuthorizationCookieName = "oauth2_auth_request"
	RedirectCookieName      = "redirect_uri"
	CookieMaxAge            = 180 // seconds
)

// RedirectParam is the query parameter carrying the post-login destination.
const RedirectParam = "redirect_uri"

// CookieRequestStore keeps the in-flight authorization request and the caller's post-login
// destination in short-lived cookies instead of a server-side session.
type CookieRequestStore struct {
	secure bool
}

// NewCookieRequestStore creates a new CookieRequestStore. With forceSecure the cookies are
// marked Secure even on plain-HTTP requests, e.g. behind a TLS-terminating proxy.
func NewCookieRequestStore(forceSecure bool) *CookieRequestStore {
	return &CookieRequestStore{secure: forceSecure}
}

// Save writes req to the authorization cookie and, when the incoming request carries a
// redirect_uri parameter, the destination to the redirect cookie. A nil req clears both.
func (s *CookieRequestStore) Save(w http.ResponseWriter, r *http.Request, req *AuthorizationRequest) error {
	if req == nil {
		s.Clear(w, r)
		return nil
	}

	encoded, err := Encode(req)
	if err != nil {
		return err
	}
	s.setCookie(w, r, AuthorizationCookieName, encoded, CookieMaxAge)

	if target := strings.TrimSpace(r.URL.Query().Get(RedirectParam)); target != "" {
		s.setCookie(w, r, RedirectCookieName, target, CookieMaxAge)
	}

	return nil
}

// Load reads the stored authorization request. It returns nil and no error when the cookie
// is absent, which includes an expired login attempt.
func (s *CookieRequestStore) Load(r *http.Request) (*AuthorizationRequest, error) {
	cookie, err := r.Cookie(AuthorizationCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return Decode(cookie.Value)
}

// Remove returns the stored authorization request and expires its cookie. The redirect
// cookie is left for the login handlers, which read it and then call Clear.
func (s *CookieRequestStore) Remove(w http.ResponseWriter, r *http.Request) (*AuthorizationRequest, error) {
	req, err := s.Load(r)
	s.setCookie(w, r, AuthorizationCookieName, "", -1)
	return req, err
}

// Clear expires both cookies.
func (s *CookieRequestStore) Clear(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, AuthorizationCookieName, "", -1)
	s.setCookie(w, r, RedirectCookieName, "", -1)
}

// RedirectTarget returns the destination stored by Save.
func (s *CookieRequestStore) RedirectTarget(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(RedirectCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return cookie.Value, true
}

// setCookie writes a cookie scoped to the whole site. A negative maxAge deletes it.
func (s *CookieRequestStore) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if err := cookie.Valid(); err != nil {
		log.Warn().Err(err).Str("cookie", name).Msg("refusing to write invalid cookie")
		return
	}
	http.SetCookie(w, cookie)
}
