package oauth2flow

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestCookieRequestStore_SaveAndLoad(t *testing.T) {
	store := NewCookieRequestStore(false)
	req, err := NewPKCECustomizer().Customize(NewAuthorizationRequest(testConfig(), "state-1"))
	require.NoError(t, err)

	incoming := httptest.NewRequest(http.MethodGet, "/oauth2/authorization/google?redirect_uri=http://app.example/x", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, incoming, req))

	cookies := cookiesByName(rec)
	authCookie := cookies[AuthorizationCookieName]
	require.NotNil(t, authCookie)
	assert.Equal(t, "/", authCookie.Path)
	assert.Equal(t, CookieMaxAge, authCookie.MaxAge)
	assert.True(t, authCookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, authCookie.SameSite)
	assert.False(t, authCookie.Secure)

	redirectCookie := cookies[RedirectCookieName]
	require.NotNil(t, redirectCookie)
	assert.Equal(t, "http://app.example/x", redirectCookie.Value)
	assert.Equal(t, CookieMaxAge, redirectCookie.MaxAge)

	callback := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google", nil)
	callback.AddCookie(authCookie)
	callback.AddCookie(redirectCookie)

	loaded, err := store.Load(callback)
	require.NoError(t, err)
	assert.Equal(t, "state-1", loaded.State)
	assert.Equal(t, req.CodeVerifier(), loaded.CodeVerifier())

	target, ok := store.RedirectTarget(callback)
	assert.True(t, ok)
	assert.Equal(t, "http://app.example/x", target)
}

func TestCookieRequestStore_SaveWithoutRedirectParam(t *testing.T) {
	store := NewCookieRequestStore(false)
	incoming := httptest.NewRequest(http.MethodGet, "/oauth2/authorization/google?redirect_uri=%20", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, store.Save(rec, incoming, NewAuthorizationRequest(testConfig(), "s")))

	cookies := cookiesByName(rec)
	assert.Contains(t, cookies, AuthorizationCookieName)
	assert.NotContains(t, cookies, RedirectCookieName)
}

func TestCookieRequestStore_SaveNilClears(t *testing.T) {
	store := NewCookieRequestStore(false)
	rec := httptest.NewRecorder()

	require.NoError(t, store.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil))

	cookies := cookiesByName(rec)
	for _, name := range []string{AuthorizationCookieName, RedirectCookieName} {
		require.Contains(t, cookies, name)
		assert.Equal(t, -1, cookies[name].MaxAge)
		assert.Empty(t, cookies[name].Value)
		assert.Equal(t, "/", cookies[name].Path)
	}
}

func TestCookieRequestStore_LoadAbsent(t *testing.T) {
	store := NewCookieRequestStore(false)

	req, err := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, err)
	assert.Nil(t, req)

	_, ok := store.RedirectTarget(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestCookieRequestStore_LoadMalformed(t *testing.T) {
	store := NewCookieRequestStore(false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AuthorizationCookieName, Value: encodeJSON(`{"clientId":"c"}`)})

	_, err := store.Load(r)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestCookieRequestStore_RemoveKeepsRedirectCookie(t *testing.T) {
	store := NewCookieRequestStore(false)
	encoded, err := Encode(NewAuthorizationRequest(testConfig(), "state-1"))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AuthorizationCookieName, Value: encoded})
	rec := httptest.NewRecorder()

	req, err := store.Remove(rec, r)
	require.NoError(t, err)
	assert.Equal(t, "state-1", req.State)

	cookies := cookiesByName(rec)
	assert.Equal(t, -1, cookies[AuthorizationCookieName].MaxAge)
	assert.NotContains(t, cookies, RedirectCookieName)
}

func TestCookieRequestStore_SecureOnTLS(t *testing.T) {
	store := NewCookieRequestStore(false)
	r := httptest.NewRequest(http.MethodGet, "https://auth.example/oauth2/authorization/google", nil)
	r.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()

	require.NoError(t, store.Save(rec, r, NewAuthorizationRequest(testConfig(), "s")))
	assert.True(t, cookiesByName(rec)[AuthorizationCookieName].Secure)
}
