package authgin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/services"
)

// Accounts is the local login and registration backend.
type Accounts interface {
	Login(ctx context.Context, email, password string) (*services.TokenResponse, error)
	Register(ctx context.Context, email, password string) (*services.TokenResponse, error)
}

// AuthRequest is the body of the login and register endpoints.
type AuthRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=200"`
}

// AuthAPI serves the local authentication endpoints.
type AuthAPI struct {
	accounts Accounts
	tokens   Authenticator
}

// NewAuthAPI creates a new AuthAPI.
func NewAuthAPI(accounts Accounts, tokens Authenticator) *AuthAPI {
	return &AuthAPI{
		accounts: accounts,
		tokens:   tokens,
	}
}

// RegisterRoutes registers the /auth routes.
func (a *AuthAPI) RegisterRoutes(e *gin.Engine) {
	g := e.Group("/auth")
	g.POST("/login", a.LoginHandler)
	g.POST("/register", a.RegisterHandler)
	g.GET("/me", BearerAuthMiddleware(a.tokens), RequirePrincipal(), a.MeHandler)
	g.GET("/", a.HealthHandler)
}

// LoginHandler exchanges email and password for a session token.
func (a *AuthAPI) LoginHandler(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, bindingError(err))
		return
	}

	resp, err := a.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterHandler creates a local account and returns a session token for it.
func (a *AuthAPI) RegisterHandler(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, bindingError(err))
		return
	}

	resp, err := a.accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MeHandler returns the authenticated principal.
func (a *AuthAPI) MeHandler(c *gin.Context) {
	p, ok := PrincipalFromGin(c)
	if !ok {
		renderError(c, serrors.NewUnauthorized("authentication required"))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *AuthAPI) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "API Online")
}

// bindingError turns a gin binding failure into a validation error naming the bad fields.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return serrors.NewValidation("malformed request body")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" is "+describeTag(fe))
	}
	return serrors.NewValidation(strings.Join(fields, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "not a valid email"
	case "min":
		return "shorter than " + fe.Param() + " characters"
	case "max":
		return "longer than " + fe.Param() + " characters"
	default:
		return "invalid"
	}
}

var _ Accounts = (*services.AuthService)(nil)
