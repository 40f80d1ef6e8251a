package domain

import "time"

// User is the local credential record of an account.
type User struct {
	ID                    string    `bson:"_id"                     json:"id"`
	Email                 string    `bson:"email"                   json:"email"`
	PasswordHash          string    `bson:"password_hash"           json:"-"`
	Enabled               bool      `bson:"enabled"                 json:"enabled"`
	AccountNonExpired     bool      `bson:"account_non_expired"     json:"account_non_expired"`
	AccountNonLocked      bool      `bson:"account_non_locked"      json:"account_non_locked"`
	CredentialsNonExpired bool      `bson:"credentials_non_expired" json:"credentials_non_expired"`
	EmailVerified         bool      `bson:"email_verified"          json:"email_verified"`
	FederatedConnected    bool      `bson:"federated_connected"     json:"federated_connected"`
	Roles                 []string  `bson:"roles"                   json:"roles"`
	ProfileID             *string   `bson:"profile_id,omitempty"    json:"profile_id,omitempty"`
	AdvertiserID          *string   `bson:"advertiser_id,omitempty" json:"advertiser_id,omitempty"`
	CreatedAt             time.Time `bson:"created_at"              json:"created_at"`
	UpdatedAt             time.Time `bson:"updated_at"              json:"updated_at"`
}

// NewUser returns an active account with every status flag set.
func NewUser(email, passwordHash string, roles []string) *User {
	return &User{
		Email:                 email,
		PasswordHash:          passwordHash,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Roles:                 roles,
	}
}

// IsAllowed reports whether all four account-status flags permit a login.
func (u *User) IsAllowed() bool {
	return u.Enabled && u.AccountNonExpired && u.AccountNonLocked && u.CredentialsNonExpired
}

// Authorities returns the role names with the authority prefix applied.
func (u *User) Authorities() []string {
	authorities := make([]string, 0, len(u.Roles))
	seen := make(map[string]struct{}, len(u.Roles))
	for _, role := range u.Roles {
		authority := RoleAuthority(role)
		if _, ok := seen[authority]; ok {
			continue
		}
		seen[authority] = struct{}{}
		authorities = append(authorities, authority)
	}
	return authorities
}

// UserPatch carries the fields a caller wants to change on a User. Nil fields are left alone.
type UserPatch struct {
	FederatedConnected *bool
	EmailVerified      *bool
	ProfileID          *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.FederatedConnected == nil && p.EmailVerified == nil && p.ProfileID == nil
}

// Apply returns a copy of u with the supplied patch fields set.
func (u User) Apply(p UserPatch) User {
	if p.FederatedConnected != nil {
		u.FederatedConnected = *p.FederatedConnected
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.ProfileID != nil {
		id := *p.ProfileID
		u.ProfileID = &id
	}
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

// Profile holds the personal details linked to an account.
type Profile struct {
	ID        string    `bson:"_id"        json:"id"`
	UserID    string    `bson:"user_id"    json:"user_id"`
	FirstName string    `bson:"first_name" json:"first_name"`
	LastName  string    `bson:"last_name"  json:"last_name"`
	Address   string    `bson:"address"    json:"address"`
	AvatarURL string    `bson:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
