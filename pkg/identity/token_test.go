package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	ks, err := NewEphemeralKeySet()
	require.NoError(t, err)
	return NewTokenManager(ks)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := newTestManager(t)

	token, err := tm.Issue("user-1", "a@example.com", "Ada Lovelace")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.SubjectID())
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.DisplayName)
	assert.NotEmpty(t, claims.ID, "tokens carry a JTI for revocation")
}

func TestTokenExpiry(t *testing.T) {
	ks, err := NewEphemeralKeySet()
	require.NoError(t, err)
	tm := NewTokenManager(ks)

	// Sign an already-expired token directly through the keyset.
	now := time.Now().UTC()
	expired, err := ks.Sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-4 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-24 * time.Hour)),
		},
	})
	require.NoError(t, err)

	_, err = tm.Verify(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssueSetsThreeDayExpiry(t *testing.T) {
	tm := newTestManager(t)

	token, err := tm.Issue("user-1", "a@example.com", "Ada")
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenRejectsWrongKey(t *testing.T) {
	tm := newTestManager(t)
	other := newTestManager(t)

	token, err := other.Issue("user-1", "a@example.com", "Ada")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := newTestManager(t)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tm.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestTokenRejectsMissingSubject(t *testing.T) {
	ks, err := NewEphemeralKeySet()
	require.NoError(t, err)
	tm := NewTokenManager(ks)

	now := time.Now().UTC()
	tok, err := ks.Sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	_, err = tm.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACKeySetRejectsEmptySecret(t *testing.T) {
	_, err := NewHMACKeySet("")
	assert.Error(t, err)
}
