package auth

import (
	"context"
	"errors"

	"github.com/minorlabs/colorizer/pkg/identity"
)

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims attaches verified session claims to the context.
func WithClaims(ctx context.Context, c *identity.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// GetClaims retrieves the session claims from the context.
func GetClaims(ctx context.Context) (*identity.Claims, error) {
	c, ok := ctx.Value(claimsKey).(*identity.Claims)
	if !ok {
		return nil, errors.New("no claims in context")
	}
	return c, nil
}

// GetOwnerID is a helper to get the authenticated subject id from the
// context's claims.
func GetOwnerID(ctx context.Context) (string, error) {
	c, err := GetClaims(ctx)
	if err != nil {
		return "", err
	}
	return c.SubjectID(), nil
}
