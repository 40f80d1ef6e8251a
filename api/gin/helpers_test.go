package authgin_test

import (
	"context"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	authgin "github.com/pilab-dev/shadow-auth/api/gin"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/pilab-dev/shadow-auth/internal/audit"
	"github.com/pilab-dev/shadow-auth/internal/crypto"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
)

func setupTest(t *testing.T) *services.TokenService {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log.Logger = zerolog.Nop()
	audit.SetOutput(zerolog.Nop())

	keyOnce.Do(func() {
		k, err := crypto.GenerateRSAKey()
		if err != nil {
			panic(err)
		}
		key = k
	})

	signer := services.NewTokenSigner()
	signer.AddRSAKeySigner("", key)
	return services.NewTokenService(signer, &key.PublicKey, "app", time.Hour)
}

func testPrincipal() *domain.Principal {
	return &domain.Principal{
		UserID:      uuid.New(),
		Username:    "bob@example.com",
		Authorities: []string{"ROLE_USER"},
	}
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

// fakeAccounts records the credentials it receives.
type fakeAccounts struct {
	resp *services.TokenResponse
	err  error

	email, password string
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*services.TokenResponse, error) {
	f.email, f.password = email, password
	return f.resp, f.err
}

func (f *fakeAccounts) Register(_ context.Context, email, password string) (*services.TokenResponse, error) {
	f.email, f.password = email, password
	return f.resp, f.err
}

func mustAllowList(t *testing.T, uris ...string) *authgin.RedirectAllowList {
	t.Helper()
	a, err := authgin.NewRedirectAllowList(uris)
	require.NoError(t, err)
	return a
}
