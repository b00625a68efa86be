package auth

import "errors"

// Sentinel errors for auth operations.
//
// The HTTP layer maps each one to a distinct response code so clients can
// tell an expired token from a revoked or malformed one.
var (
	ErrMissingHeader      = errors.New("authorization header missing or invalid")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRevocationStore    = errors.New("revocation store unavailable")
	ErrNoSecret           = errors.New("signing secret is required")
)
