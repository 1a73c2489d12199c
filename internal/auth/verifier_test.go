package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
)

func signedToken(t *testing.T, claims models.AccessClaims) string {
	t.Helper()
	// HS256 is fine here; the expiry verifier never checks the signature
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestExpiryVerifierAcceptsLiveToken(t *testing.T) {
	v := NewExpiryVerifier()

	token := signedToken(t, models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "u@e.com",
		Role:  "authenticated",
	})

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.GetUserID())
	assert.Equal(t, "u@e.com", claims.Email)
}

func TestExpiryVerifierRejectsExpiredToken(t *testing.T) {
	v := NewExpiryVerifier()

	token := signedToken(t, models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestExpiryVerifierRejectsTokenWithoutExpiry(t *testing.T) {
	v := NewExpiryVerifier()

	token := signedToken(t, models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestExpiryVerifierRejectsGarbage(t *testing.T) {
	v := NewExpiryVerifier()

	_, err := v.Verify("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestExpiryVerifierBoundary(t *testing.T) {
	exp := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	v := NewExpiryVerifier()

	v.now = func() time.Time { return exp.Add(-time.Second) }
	_, err := v.Verify(token)
	assert.NoError(t, err)

	// exactly at expiry counts as expired
	v.now = func() time.Time { return exp }
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
