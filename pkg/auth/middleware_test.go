package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minorlabs/colorizer/pkg/auth"
	"github.com/minorlabs/colorizer/pkg/identity"
)

func setupGate(t *testing.T) (*identity.HMACKeySet, *identity.TokenManager, *auth.Middleware) {
	t.Helper()
	ks, err := identity.NewEphemeralKeySet()
	require.NoError(t, err)
	tm := identity.NewTokenManager(ks)
	return ks, tm, auth.NewMiddleware(tm, nil)
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/search-history", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	return req
}

func TestMiddleware_ValidCookie(t *testing.T) {
	_, tm, gate := setupGate(t)

	var captured *identity.Claims
	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := auth.GetClaims(r.Context())
		require.NoError(t, err)
		captured = c
		w.WriteHeader(http.StatusOK)
	}))

	token, err := tm.Issue("user-123", "u@example.com", "User")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken(token))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-123", captured.SubjectID())

	ownerID, err := auth.GetOwnerID(context.Background())
	assert.Error(t, err)
	assert.Empty(t, ownerID)
}

func TestMiddleware_NoCookie(t *testing.T) {
	_, _, gate := setupGate(t)

	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called without a token")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken(""))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "No token provided")
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	ks, _, gate := setupGate(t)

	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for an expired token")
	}))

	now := time.Now().UTC()
	expired, err := ks.Sign(identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now.Add(-96 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken(expired))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestMiddleware_TamperedToken(t *testing.T) {
	_, tm, gate := setupGate(t)

	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for a tampered token")
	}))

	token, err := tm.Issue("user-123", "u@example.com", "User")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken(token+"x"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RevokedToken(t *testing.T) {
	ks, err := identity.NewEphemeralKeySet()
	require.NoError(t, err)
	tm := identity.NewTokenManager(ks)
	revoker := auth.NewMemoryRevoker()
	gate := auth.NewMiddleware(tm, revoker)

	token, err := tm.Issue("user-123", "u@example.com", "User")
	require.NoError(t, err)
	claims, err := tm.Verify(token)
	require.NoError(t, err)

	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Before revocation the token is accepted.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken(token))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, revoker.Revoke(context.Background(), claims.ID, time.Hour))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestMemoryRevokerEntryExpires(t *testing.T) {
	revoker := auth.NewMemoryRevoker()
	ctx := context.Background()

	require.NoError(t, revoker.Revoke(ctx, "jti-1", -time.Second))

	revoked, err := revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "expired revocation entries are dropped")
}
