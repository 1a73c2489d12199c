package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims represents the JWT claims carried by the auth service's
// access tokens (GoTrue-style).
type AccessClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"` // "authenticated" or "anon"
	SessionID string `json:"session_id"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *AccessClaims) GetUserID() string {
	return c.Subject
}
