package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/audit"
	"github.com/pilab-dev/shadow-auth/internal/federation"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const auditService = "auth"

// Client-facing messages.
const (
	msgInvalidCredentials    = "Invalid email or password"
	msgAccountBlocked        = "The account has been deactivated or blocked"
	msgEmailRegistered       = "Email already registered"
	msgNotEnoughInformation  = "The account does not have enough information"
	msgProviderEmailNotFound = "Email not found from Oauth2 Provider"
	msgUserNotFound          = "User not found"
)

// TokenResponse is returned by local login and registration.
type TokenResponse struct {
	Token string `json:"token"`
}

// FederatedIdentity is the provider-side identity handed to Reconcile.
type FederatedIdentity struct {
	Email         string
	FirstName     string
	LastName      string
	AvatarURL     string
	EmailVerified bool
	Attributes    map[string]any
}

// AuthService authenticates local and federated users and links federated logins to local accounts.
type AuthService struct {
	users    domain.UserRepository
	profiles domain.ProfileRepository
	roles    domain.RoleRepository

	hasher PasswordHasher
	tokens *TokenService

	providers       *federation.Registry
	fetchAttributes federation.AttributeFetcher
}

// NewAuthService creates a new AuthService. A nil fetchAttributes falls back to the
// user info endpoints of the registered providers.
func NewAuthService(
	users domain.UserRepository,
	profiles domain.ProfileRepository,
	roles domain.RoleRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	providers *federation.Registry,
	fetchAttributes federation.AttributeFetcher,
) *AuthService {
	if fetchAttributes == nil && providers != nil {
		fetchAttributes = providers.FetchAttributes
	}
	return &AuthService{
		users:           users,
		profiles:        profiles,
		roles:           roles,
		hasher:          hasher,
		tokens:          tokens,
		providers:       providers,
		fetchAttributes: fetchAttributes,
	}
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	principal, err := s.Authenticate(ctx, email, password)
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		audit.Record(ctx, auditService, audit.Event{Action: audit.ActionLogin, Subject: email, Err: err})
		return nil, err
	}

	token, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}

	metrics.LoginSuccessTotal.Inc()
	audit.Record(ctx, auditService, audit.Event{Action: audit.ActionLogin, Subject: principal.UserID.String()})

	return &TokenResponse{Token: token}, nil
}

// Authenticate verifies email and password and returns the account's principal.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.Principal, error) {
	if isBlank(email) || password == "" {
		return nil, serrors.NewValidation("Email and password are required")
	}

	user, err := s.LoadByUsername(ctx, email)
	if err != nil {
		if serrors.KindOf(err) == serrors.KindNotFound {
			return nil, serrors.NewBadRequest(msgInvalidCredentials)
		}
		return nil, err
	}

	if !s.hasher.Matches(password, user.PasswordHash) {
		return nil, serrors.NewBadRequest(msgInvalidCredentials)
	}

	if !user.IsAllowed() {
		return nil, serrors.NewUnauthorized(msgAccountBlocked)
	}

	return s.principalFor(user, nil)
}

// Register creates a local account with the default roles and logs it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*TokenResponse, error) {
	if isBlank(email) || password == "" {
		return nil, serrors.NewValidation("Email and password are required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, serrors.NewInternal("failed to look up user", err)
	}
	if exists {
		audit.Record(ctx, auditService, audit.Event{Action: audit.ActionRegister, Subject: email, Err: domain.ErrUserAlreadyExists})
		return nil, serrors.NewBadRequest(msgEmailRegistered)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, serrors.NewInternal("failed to hash password", err)
	}

	user, err := s.newUser(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, serrors.NewBadRequest(msgEmailRegistered)
		}
		return nil, serrors.NewInternal("failed to create user", err)
	}

	metrics.UserRegisteredTotal.Inc()
	audit.Record(ctx, auditService, audit.Event{Action: audit.ActionRegister, Subject: user.ID})

	return s.Login(ctx, email, password)
}

// LoadByUsername returns the account registered with email.
func (s *AuthService) LoadByUsername(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, serrors.NewNotFound(msgUserNotFound)
		}
		return nil, serrors.NewInternal("failed to load user", err)
	}
	return user, nil
}

// LoadProviderUser fetches the provider's attributes for token and reconciles them
// with the local accounts.
func (s *AuthService) LoadProviderUser(ctx context.Context, providerID string, token *oauth2.Token) (*domain.Principal, error) {
	if s.fetchAttributes == nil {
		return nil, serrors.NewBadRequest("Login with " + providerID + " is not supported")
	}

	attributes, err := s.fetchAttributes(ctx, providerID, token)
	if err != nil {
		if _, ok := serrors.As(err); ok {
			return nil, err
		}
		log.Warn().Err(err).Str("provider", providerID).Msg("failed to fetch provider user attributes")
		metrics.FederatedLoginsTotal.WithLabelValues(providerID, "upstream_error").Inc()
		return nil, serrors.NewUpstream("Failed to load user from "+providerID, err)
	}

	return s.ProcessProviderLogin(ctx, providerID, attributes)
}

// ProcessProviderLogin extracts the provider user info from attributes and reconciles it.
func (s *AuthService) ProcessProviderLogin(ctx context.Context, providerID string, attributes map[string]any) (*domain.Principal, error) {
	if s.providers == nil {
		return nil, serrors.NewBadRequest("Login with " + providerID + " is not supported")
	}

	info, err := s.providers.Extract(providerID, attributes)
	if err != nil {
		return nil, err
	}

	if isBlank(info.Email) {
		metrics.FederatedLoginsTotal.WithLabelValues(providerID, "missing_email").Inc()
		return nil, serrors.NewBadRequest(msgProviderEmailNotFound)
	}

	principal, err := s.Reconcile(ctx, FederatedIdentity{
		Email:         info.Email,
		FirstName:     info.FirstName,
		LastName:      info.LastName,
		AvatarURL:     info.AvatarURL,
		EmailVerified: info.EmailVerified,
		Attributes:    attributes,
	})
	if err != nil {
		metrics.FederatedLoginsTotal.WithLabelValues(providerID, string(serrors.KindOf(err))).Inc()
		audit.Record(ctx, auditService, audit.Event{Action: audit.ActionFederatedLogin, Subject: info.Email, Target: providerID, Err: err})
		return nil, err
	}

	metrics.FederatedLoginsTotal.WithLabelValues(providerID, "success").Inc()
	audit.Record(ctx, auditService, audit.Event{Action: audit.ActionFederatedLogin, Subject: principal.UserID.String(), Target: providerID})

	return principal, nil
}

// Reconcile links a federated identity to a local account, creating the account and its
// profile on first login. An existing account gets at most one flag change per call:
// it is first marked as federated-connected, and only on a later login is its
// email-verified flag synchronised with the provider.
func (s *AuthService) Reconcile(ctx context.Context, identity FederatedIdentity) (*domain.Principal, error) {
	if isBlank(identity.Email) || isBlank(identity.FirstName) ||
		isBlank(identity.LastName) || isBlank(identity.AvatarURL) {
		return nil, serrors.NewValidation(msgNotEnoughInformation)
	}

	user, err := s.users.GetUserByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = s.createFederatedUser(ctx, identity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, serrors.NewInternal("failed to load user", err)
	default:
		user, err = s.mergeFederatedUser(ctx, user, identity)
		if err != nil {
			return nil, err
		}
	}

	return s.principalFor(user, identity.Attributes)
}

func (s *AuthService) createFederatedUser(ctx context.Context, identity FederatedIdentity) (*domain.User, error) {
	// Federated accounts never log in with a password; the random one only fills the record.
	hash, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, serrors.NewInternal("failed to hash password", err)
	}

	user, err := s.newUser(ctx, identity.Email, hash)
	if err != nil {
		return nil, err
	}
	user.FederatedConnected = true
	user.EmailVerified = identity.EmailVerified

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, serrors.NewConflict(msgEmailRegistered)
		}
		return nil, serrors.NewInternal("failed to create user", err)
	}

	profile := &domain.Profile{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		AvatarURL: identity.AvatarURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, serrors.NewInternal("failed to create profile", err)
	}

	linked := user.Apply(domain.UserPatch{ProfileID: &profile.ID})
	linked.UpdatedAt = time.Now().UTC()
	if err := s.users.UpdateUser(ctx, &linked); err != nil {
		return nil, serrors.NewInternal("failed to link profile", err)
	}

	metrics.UserRegisteredTotal.Inc()
	audit.Record(ctx, auditService, audit.Event{Action: audit.ActionRegister, Subject: linked.ID, Details: "federated"})

	return &linked, nil
}

func (s *AuthService) mergeFederatedUser(ctx context.Context, user *domain.User, identity FederatedIdentity) (*domain.User, error) {
	if !user.IsAllowed() {
		return nil, serrors.NewUnauthorized(msgAccountBlocked)
	}

	var (
		patch  domain.UserPatch
		action string
	)
	if !user.FederatedConnected {
		connected := true
		patch.FederatedConnected = &connected
		action = audit.ActionAccountLinked
	} else if user.EmailVerified != identity.EmailVerified {
		verified := identity.EmailVerified
		patch.EmailVerified = &verified
		action = audit.ActionEmailVerified
	}

	if patch.IsEmpty() {
		return user, nil
	}

	updated := user.Apply(patch)
	updated.UpdatedAt = time.Now().UTC()
	if err := s.users.UpdateUser(ctx, &updated); err != nil {
		return nil, serrors.NewInternal("failed to update user", err)
	}

	audit.Record(ctx, auditService, audit.Event{Action: action, Subject: updated.ID})

	return &updated, nil
}

func (s *AuthService) newUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	roles, err := s.roles.DefaultRoles(ctx)
	if err != nil {
		return nil, serrors.NewInternal("failed to resolve default roles", err)
	}
	if len(roles) == 0 {
		return nil, serrors.NewInternal("failed to resolve default roles", domain.ErrNoDefaultRoles)
	}

	now := time.Now().UTC()
	user := domain.NewUser(email, passwordHash, roles)
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	return user, nil
}

func (s *AuthService) principalFor(user *domain.User, attributes map[string]any) (*domain.Principal, error) {
	principal, err := domain.NewPrincipal(user, attributes)
	if err != nil {
		return nil, serrors.NewInternal("stored user has an invalid id", err)
	}
	return principal, nil
}
