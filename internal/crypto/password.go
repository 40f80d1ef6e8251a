package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters for password hashes.
const (
	SaltLength       = 16
	PBKDF2Iterations = 310000
	DerivedKeyLength = 32
)

// PBKDF2Hasher hashes passwords with PBKDF2-HMAC-SHA512. An application-wide pepper is
// appended to every random salt, so hashes only verify with the same pepper.
// The encoded form is base64(salt || derivedKey).
type PBKDF2Hasher struct {
	pepper     []byte
	iterations int
}

// NewPBKDF2Hasher creates a hasher with the given pepper.
func NewPBKDF2Hasher(pepper string) *PBKDF2Hasher {
	return &PBKDF2Hasher{pepper: []byte(pepper), iterations: PBKDF2Iterations}
}

// Hash returns the encoded hash of raw. The only possible error is an entropy failure.
func (h *PBKDF2Hasher) Hash(raw string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	out := make([]byte, 0, SaltLength+DerivedKeyLength)
	out = append(out, salt...)
	out = append(out, h.derive(raw, salt)...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Matches recomputes the hash of raw with the salt stored in encoded.
func (h *PBKDF2Hasher) Matches(raw, encoded string) bool {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) != SaltLength+DerivedKeyLength {
		return false
	}
	salt, expected := decoded[:SaltLength], decoded[SaltLength:]
	return subtle.ConstantTimeCompare(h.derive(raw, salt), expected) == 1
}

func (h *PBKDF2Hasher) derive(raw string, salt []byte) []byte {
	input := make([]byte, 0, len(salt)+len(h.pepper))
	input = append(input, salt...)
	input = append(input, h.pepper...)
	return pbkdf2.Key([]byte(raw), input, h.iterations, DerivedKeyLength, sha512.New)
}
