package authgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/audit"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/pilab-dev/shadow-auth/internal/oauth2flow"
	"github.com/rs/zerolog/log"
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(p *domain.Principal) (string, error)
}

// ErrUnauthorizedRedirect is returned when the post-login destination is not allow-listed.
var ErrUnauthorizedRedirect = serrors.NewUnauthorized("Unauthorized Redirect URI")

// SuccessHandler completes a federated login by redirecting to the caller's destination
// with a fresh session token.
type SuccessHandler struct {
	tokens        TokenIssuer
	store         *oauth2flow.CookieRequestStore
	allowList     *RedirectAllowList
	defaultTarget string
}

// NewSuccessHandler creates a new SuccessHandler.
func NewSuccessHandler(
	tokens TokenIssuer,
	store *oauth2flow.CookieRequestStore,
	allowList *RedirectAllowList,
	defaultTarget string,
) *SuccessHandler {
	return &SuccessHandler{
		tokens:        tokens,
		store:         store,
		allowList:     allowList,
		defaultTarget: defaultTarget,
	}
}

// Handle redirects to the stored destination, or the default one, with ?token=<jwt>.
// A destination outside the allow-list yields ErrUnauthorizedRedirect and nothing is
// written except the cookie removal. Nothing happens when a response was already written.
func (h *SuccessHandler) Handle(c *gin.Context, p *domain.Principal) error {
	target, ok := h.store.RedirectTarget(c.Request)
	if !ok {
		target = h.defaultTarget
	}

	if c.Writer.Written() {
		log.Debug().Str("target", target).Msg("response already committed, unable to redirect")
		return nil
	}

	h.store.Clear(c.Writer, c.Request)

	if !h.allowList.Allows(target) {
		metrics.RedirectsRejectedTotal.Inc()
		audit.Record(c.Request.Context(), "auth", audit.Event{
			Action:  audit.ActionRedirect,
			Subject: p.UserID.String(),
			Target:  target,
			Err:     ErrUnauthorizedRedirect,
		})
		return ErrUnauthorizedRedirect
	}

	token, err := h.tokens.Issue(p)
	if err != nil {
		return err
	}

	location, err := withQueryParam(target, "token", token)
	if err != nil {
		return serrors.NewInternal("invalid redirect target", err)
	}

	c.Redirect(http.StatusFound, location)

	return nil
}

// FailureHandler ends a failed federated login by redirecting with ?error=<message>.
type FailureHandler struct {
	store         *oauth2flow.CookieRequestStore
	allowList     *RedirectAllowList
	defaultTarget string
}

// NewFailureHandler creates a new FailureHandler. Destinations outside allowList are
// replaced by defaultTarget.
func NewFailureHandler(store *oauth2flow.CookieRequestStore, allowList *RedirectAllowList, defaultTarget string) *FailureHandler {
	return &FailureHandler{
		store:         store,
		allowList:     allowList,
		defaultTarget: defaultTarget,
	}
}

// Handle redirects to the redirect_uri parameter, the stored destination or the default
// frontend URI, in that order. The error parameter of the request takes precedence over
// the message of err.
func (h *FailureHandler) Handle(c *gin.Context, err error) {
	if c.Writer.Written() {
		log.Debug().Err(err).Msg("response already committed, unable to redirect")
		return
	}

	h.store.Clear(c.Writer, c.Request)

	target := c.Query(oauth2flow.RedirectParam)
	if target == "" {
		if stored, ok := h.store.RedirectTarget(c.Request); ok {
			target = stored
		} else {
			target = h.defaultTarget
		}
	}
	if !h.allowList.Allows(target) {
		log.Warn().Str("target", target).Msg("failure redirect target not allowed, using default")
		target = h.defaultTarget
	}

	message := c.Query("error")
	if message == "" {
		message = serrors.SafeMessage(err)
	}

	location, urlErr := withQueryParam(target, "error", SanitizeError(message))
	if urlErr != nil {
		renderError(c, err)
		return
	}

	log.Info().Err(err).Str("target", target).Msg("login failed")
	c.Redirect(http.StatusFound, location)
}

var errorReplacer = strings.NewReplacer("|", " ", "{", " ", "}", " ", "[", " ", "]", " ")

// SanitizeError replaces the characters | { } [ ] with spaces and trims the result.
func SanitizeError(message string) string {
	return strings.TrimSpace(errorReplacer.Replace(message))
}
