package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/minorlabs/colorizer/pkg/api"
	"github.com/minorlabs/colorizer/pkg/identity"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// Middleware gates requests on a verified session token carried in the
// `token` cookie. Verified claims are placed in the request context; the
// claim subject becomes the owner id for all downstream scoping.
type Middleware struct {
	tokens  *identity.TokenManager
	revoker Revoker
}

// NewMiddleware builds the auth gate. revoker may be nil, in which case no
// revocation check is performed.
func NewMiddleware(tokens *identity.TokenManager, revoker Revoker) *Middleware {
	return &Middleware{tokens: tokens, revoker: revoker}
}

// Require wraps a handler so it only runs with a verified token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			api.WriteUnauthorized(w, "Authentication failed. No token provided.")
			return
		}

		claims, err := m.tokens.Verify(cookie.Value)
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				api.WriteUnauthorized(w, "Authentication failed. Token expired.")
				return
			}
			api.WriteUnauthorized(w, "Authentication failed. Invalid token.")
			return
		}

		if m.revoker != nil {
			revoked, err := m.revoker.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				// Fail closed: an unreachable registry must not let
				// revoked tokens through.
				slog.Error("revocation check failed", "error", err)
				api.WriteUnauthorized(w, "Authentication failed.")
				return
			}
			if revoked {
				api.WriteUnauthorized(w, "Authentication failed. Token revoked.")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
