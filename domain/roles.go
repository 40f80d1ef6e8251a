package domain

import "strings"

// AuthorityPrefix marks a role name as a granted authority.
const AuthorityPrefix = "ROLE_"

// Standard roles
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role is a named group of permissions.
type Role struct {
	ID          string `bson:"_id"         json:"id"`
	Name        string `bson:"name"        json:"name"`
	Description string `bson:"description" json:"description"`
	IsDefault   bool   `bson:"is_default"  json:"is_default"`
}

// RoleAuthority converts a role name to its authority string.
func RoleAuthority(name string) string {
	if strings.HasPrefix(name, AuthorityPrefix) {
		return name
	}
	return AuthorityPrefix + name
}
