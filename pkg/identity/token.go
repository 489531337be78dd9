package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the absolute lifetime of a session token.
const TokenTTL = 3 * 24 * time.Hour

// Token verification failures. Anything that is not a well-formed, correctly
// signed, unexpired token maps to one of these two.
var (
	ErrInvalidToken = errors.New("identity: invalid token")
	ErrTokenExpired = errors.New("identity: token expired")
)

// Claims are the session claims embedded in every issued token.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	DisplayName string `json:"fullname"`
}

// SubjectID is the authenticated subject; it becomes the owner id for all
// artifact scoping.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// TokenManager issues and verifies signed session tokens.
type TokenManager struct {
	keySet KeySet
}

func NewTokenManager(ks KeySet) *TokenManager {
	return &TokenManager{keySet: ks}
}

// Issue creates a signed token for the subject with a 3 day expiry.
func (tm *TokenManager) Issue(subjectID, email, displayName string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(), // JTI, used by the revocation registry
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			Issuer:    "colorizer/identity",
		},
		Email:       email,
		DisplayName: displayName,
	}
	return tm.keySet.Sign(claims)
}

// Verify parses and validates a token string. Failure modes are limited to
// signature, shape and expiry; business data is never inspected.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, tm.keySet.KeyFunc())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
