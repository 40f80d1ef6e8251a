package domain

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrNoDefaultRoles    = errors.New("no default roles configured")
)

// UserRepository persists credential records. Email uniqueness is enforced by the storage
// layer: CreateUser returns ErrUserAlreadyExists when it loses a race on the same email.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateUser(ctx context.Context, user *User) error
}

// ProfileRepository persists user profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfileByUserID(ctx context.Context, userID string) (*Profile, error)
}

// RoleRepository resolves the roles granted to new accounts.
type RoleRepository interface {
	DefaultRoles(ctx context.Context) ([]string, error)
}
