package authgin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// PrincipalKey is the gin context key of the authenticated principal.
const PrincipalKey = "auth-principal"

const bearerPrefix = "Bearer "

// Authenticator resolves a bearer token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// BearerAuthMiddleware authenticates requests carrying an "Authorization: Bearer" header.
// Requests without one pass through unauthenticated; an invalid token is rejected with 401.
func BearerAuthMiddleware(tokens Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.Next()
			return
		}

		ctx, span := otel.Tracer("authgin").Start(c.Request.Context(), "BearerAuthMiddleware")
		defer span.End()

		p, err := tokens.Authenticate(ctx, strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid token")
			renderError(c, err)
			return
		}

		c.Set(PrincipalKey, p)
		c.Request = c.Request.WithContext(domain.ContextWithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

// RequirePrincipal rejects requests that BearerAuthMiddleware did not authenticate.
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFromGin(c); !ok {
			renderError(c, serrors.NewUnauthorized("authentication required"))
			return
		}
		c.Next()
	}
}

// PrincipalFromGin returns the principal set by BearerAuthMiddleware.
func PrincipalFromGin(c *gin.Context) (*domain.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*domain.Principal)
	return p, ok && p != nil
}

// CORSMiddleware allows cross-origin calls from any origin. Credentials are not allowed
// with a wildcard origin; API callers send bearer tokens instead of cookies.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, PUT, OPTIONS, DELETE")
		c.Header("Access-Control-Max-Age", "3600")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, X-Requested-With, remember-me, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request through the global zerolog logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.Ctx(c.Request.Context()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
