// Package auth provides authentication for the catalog service.
//
// It covers:
//   - HS256 bearer tokens with a unique jti, issued and validated by TokenService
//   - Token revocation through an injected RevocationSet (in-memory or Redis)
//   - The administrator credential, stored as an Argon2id PHC hash
//   - Server-side browser sessions, kept apart from bearer tokens
//
// Validation reports why a token was rejected (ErrTokenInvalid,
// ErrTokenExpired, ErrTokenRevoked) so the HTTP layer can answer with a
// specific code.
package auth
