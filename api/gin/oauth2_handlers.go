package authgin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/federation"
	"github.com/pilab-dev/shadow-auth/internal/oauth2flow"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ProviderUserLoader turns a provider access token into a local principal.
type ProviderUserLoader interface {
	LoadProviderUser(ctx context.Context, providerID string, token *oauth2.Token) (*domain.Principal, error)
}

// OAuth2API serves the federated login endpoints.
type OAuth2API struct {
	providers *federation.Registry
	pkce      *oauth2flow.PKCECustomizer
	store     *oauth2flow.CookieRequestStore
	users     ProviderUserLoader
	success   *SuccessHandler
	failure   *FailureHandler
}

// OAuth2APIOptions holds the dependencies of OAuth2API.
type OAuth2APIOptions struct {
	Providers *federation.Registry
	PKCE      *oauth2flow.PKCECustomizer
	Store     *oauth2flow.CookieRequestStore
	Users     ProviderUserLoader
	Success   *SuccessHandler
	Failure   *FailureHandler
}

// NewOAuth2API creates a new OAuth2API.
func NewOAuth2API(opts *OAuth2APIOptions) *OAuth2API {
	pkce := opts.PKCE
	if pkce == nil {
		pkce = oauth2flow.NewPKCECustomizer()
	}
	return &OAuth2API{
		providers: opts.Providers,
		pkce:      pkce,
		store:     opts.Store,
		users:     opts.Users,
		success:   opts.Success,
		failure:   opts.Failure,
	}
}

// RegisterRoutes registers the login initiation and callback routes.
func (oa *OAuth2API) RegisterRoutes(e *gin.Engine) {
	e.GET("/oauth2/authorization/:provider", oa.AuthorizationHandler)
	e.GET("/login/oauth2/code/:provider", oa.CallbackHandler)
}

// AuthorizationHandler starts a federated login: it stores a PKCE-protected authorization
// request in a cookie and redirects the browser to the provider.
func (oa *OAuth2API) AuthorizationHandler(c *gin.Context) {
	provider, err := oa.providers.Provider(c.Param("provider"))
	if err != nil {
		oa.failure.Handle(c, err)
		return
	}

	state, err := oauth2flow.GenerateState()
	if err != nil {
		oa.failure.Handle(c, serrors.NewInternal("failed to start login", err))
		return
	}

	req, err := oa.pkce.Customize(oauth2flow.NewAuthorizationRequest(provider.Config, state))
	if err != nil {
		oa.failure.Handle(c, serrors.NewInternal("failed to start login", err))
		return
	}

	if err := oa.store.Save(c.Writer, c.Request, req); err != nil {
		oa.failure.Handle(c, serrors.NewInternal("failed to start login", err))
		return
	}

	c.Redirect(http.StatusFound, req.AuthCodeURL(provider.Config))
}

// CallbackHandler completes a federated login after the provider redirected back with a code.
func (oa *OAuth2API) CallbackHandler(c *gin.Context) {
	ctx := c.Request.Context()
	providerID := c.Param("provider")

	provider, err := oa.providers.Provider(providerID)
	if err != nil {
		oa.failure.Handle(c, err)
		return
	}

	req, err := oa.store.Remove(c.Writer, c.Request)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerID).Msg("stored authorization request is malformed")
		oa.failure.Handle(c, serrors.NewBadRequest("invalid_request"))
		return
	}
	if req == nil {
		oa.failure.Handle(c, serrors.NewBadRequest("authorization_request_not_found"))
		return
	}

	if providerErr := c.Query("error"); providerErr != "" {
		oa.failure.Handle(c, serrors.NewUnauthorized(providerErr))
		return
	}

	if c.Query("state") != req.State {
		oa.failure.Handle(c, serrors.NewBadRequest("invalid_state_parameter"))
		return
	}

	code := c.Query("code")
	if code == "" {
		oa.failure.Handle(c, serrors.NewBadRequest("authorization_code_missing"))
		return
	}

	var exchangeOpts []oauth2.AuthCodeOption
	if verifier := req.CodeVerifier(); verifier != "" {
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(verifier))
	}

	token, err := provider.Exchange(ctx, code, exchangeOpts...)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerID).Msg("authorization code exchange failed")
		oa.failure.Handle(c, serrors.NewUpstream("invalid_token_response", err))
		return
	}

	principal, err := oa.users.LoadProviderUser(ctx, providerID, token)
	if err != nil {
		oa.failure.Handle(c, err)
		return
	}

	if err := oa.success.Handle(c, principal); err != nil {
		renderError(c, err)
	}
}
