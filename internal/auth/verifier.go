package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
)

// TokenVerifier validates the access token a session was restored with.
// A failed verification means the persisted session is stale and must be
// discarded, not an authorization decision about a live request.
type TokenVerifier interface {
	// Verify validates a token string and returns its parsed claims.
	Verify(tokenString string) (*models.AccessClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// JWKSVerifier verifies token signatures against the auth service's JWKS
// endpoint. Keys are cached and refreshed based on HTTP cache headers.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSVerifier creates a verifier backed by the given JWKS URL.
func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx := context.Background()
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("token verifier initialized", "jwks_url", jwksURL)

	return &JWKSVerifier{jwks: jwks, logger: logger}, nil
}

// Verify validates the token signature, algorithm and claims.
func (v *JWKSVerifier) Verify(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, domain.ErrUnauthenticated
	}
	if !token.Valid {
		return nil, domain.ErrUnauthenticated
	}

	// Prevent algorithm confusion attacks - allow only RS256 or ES256
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("token uses unexpected algorithm", "algorithm", token.Method.Alg())
		return nil, domain.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if claims.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	if claims.Role != "authenticated" {
		v.logger.Warn("token has invalid role", "role", claims.Role)
		return nil, domain.ErrUnauthenticated
	}

	return claims, nil
}

// Close implements TokenVerifier. keyfunc manages its own refresh
// lifecycle, so there is nothing to release.
func (v *JWKSVerifier) Close() error { return nil }

// ExpiryVerifier checks only the token's exp claim, without a signature
// check. Used when no JWKS endpoint is configured: good enough to detect a
// stale persisted session, since the remote services re-verify every call.
type ExpiryVerifier struct {
	now func() time.Time
}

// NewExpiryVerifier creates an expiry-only verifier.
func NewExpiryVerifier() *ExpiryVerifier {
	return &ExpiryVerifier{now: time.Now}
}

// Verify parses the token without signature validation and rejects it when
// the exp claim is missing or in the past.
func (v *ExpiryVerifier) Verify(tokenString string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, domain.ErrUnauthenticated
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, domain.ErrUnauthenticated
	}
	if !v.now().Before(exp.Time) {
		return nil, domain.ErrUnauthenticated
	}

	return claims, nil
}

// Close implements TokenVerifier.
func (v *ExpiryVerifier) Close() error { return nil }
