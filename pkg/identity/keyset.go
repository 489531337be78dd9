package identity

import (
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// KeySet abstracts signing and verification keys so the token codec does not
// care where the secret lives.
type KeySet interface {
	// Sign creates a signed token from claims.
	Sign(claims jwt.Claims) (string, error)
	// KeyFunc returns the key for verification based on the token header.
	KeyFunc() jwt.Keyfunc
}

// HMACKeySet signs tokens with a single HMAC-SHA256 secret.
type HMACKeySet struct {
	secret []byte
}

// NewHMACKeySet wraps the given secret. An empty secret is rejected so a
// misconfigured deployment fails at startup rather than issuing forgeable
// tokens.
func NewHMACKeySet(secret string) (*HMACKeySet, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty")
	}
	return &HMACKeySet{secret: []byte(secret)}, nil
}

// NewEphemeralKeySet generates a random secret. Tokens do not survive a
// restart; intended for tests and local development.
func NewEphemeralKeySet() (*HMACKeySet, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return &HMACKeySet{secret: secret}, nil
}

func (ks *HMACKeySet) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ks.secret)
}

func (ks *HMACKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ks.secret, nil
	}
}
