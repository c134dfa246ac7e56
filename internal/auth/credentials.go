package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by CredentialStore.Verify on any
// username or password mismatch, deliberately undifferentiated so a
// caller can't probe for valid usernames.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// CredentialStore holds the single operator account the admin API
// authenticates against. Unlike the teacher's multi-admin, role-based
// AuthService, this broker has exactly one operator console, so there
// is no user table, no roles, and no session registry beyond the JWTs
// TokenIssuer already mints.
type CredentialStore struct {
	username     string
	passwordHash []byte
}

// NewCredentialStore hashes password with bcrypt at construction time,
// the way the teacher's AuthService.CreateAdmin hashes on admin
// creation rather than storing plaintext.
func NewCredentialStore(username, password string) (*CredentialStore, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{username: username, passwordHash: hash}, nil
}

// Verify checks username and password against the configured operator
// account.
func (c *CredentialStore) Verify(username, password string) error {
	if username != c.username {
		// Still run bcrypt to keep the timing profile close to a real
		// mismatch, the way the teacher's Login always calls
		// CompareHashAndPassword even for an unknown username.
		bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
