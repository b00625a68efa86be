package auth

import (
	"crypto/subtle"
	"fmt"
)

// Authenticator checks login attempts against the single configured
// administrator credential.
type Authenticator struct {
	username     string
	passwordHash string
}

// NewAuthenticator validates the configured hash up front so a bad
// configuration fails at startup rather than on the first login.
func NewAuthenticator(username, passwordHash string) (*Authenticator, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrInvalidCredentials)
	}
	if _, err := parsePHC(passwordHash); err != nil {
		return nil, err
	}
	return &Authenticator{username: username, passwordHash: passwordHash}, nil
}

// Authenticate returns the subject for a matching username/password pair,
// or ErrInvalidCredentials. The password hash is always computed so that
// an unknown username costs the same as a wrong password.
func (a *Authenticator) Authenticate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1

	passOK, err := VerifyPassword(password, a.passwordHash)
	if err != nil {
		return "", err
	}

	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}
	return a.username, nil
}
