package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrivateKeyInvalid = errors.New("private key is invalid")
	ErrPublicKeyInvalid  = errors.New("public key is invalid")
	ErrKeyPairMismatch   = errors.New("public key does not belong to private key")
)

// DefaultRSAKeyBits is the modulus size used by GenerateRSAKey.
const DefaultRSAKeyBits = 2048

// GenerateRSAKey generates a new RSA private key. It returns the key and any error that
// occurred during the generation process.
func GenerateRSAKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, DefaultRSAKeyBits)
}

// ParsePrivateKey decodes a base64 encoded PKCS#8 DER private key. PKCS#1 is accepted as well.
func ParsePrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrivateKeyInvalid, err)
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrPrivateKeyInvalid)
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrivateKeyInvalid, err)
	}
	return key, nil
}

// ParsePublicKey decodes a base64 encoded X.509 SubjectPublicKeyInfo DER public key.
func ParsePublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKeyInvalid, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKeyInvalid, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrPublicKeyInvalid)
	}
	return rsaKey, nil
}

// ParseKeyPair loads both halves and checks they belong together.
func ParseKeyPair(privateKey, publicKey string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, nil, err
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, nil, ErrKeyPairMismatch
	}
	return priv, pub, nil
}

// EncodeKeyPair renders a key pair in the format ParseKeyPair reads.
func EncodeKeyPair(key *rsa.PrivateKey) (privateKey, publicKey string, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(privDER), base64.StdEncoding.EncodeToString(pubDER), nil
}

func decodeBase64(encoded string) ([]byte, error) {
	encoded = strings.Join(strings.Fields(encoded), "")
	if der, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return der, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
}
