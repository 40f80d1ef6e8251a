package services

// PasswordHasher defines an interface for hashing and verifying passwords.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Matches(raw, encoded string) bool
}
