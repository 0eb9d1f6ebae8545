package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"bookshelf/pkg/domain"
)

// CredentialStore holds exactly one credential for the lifetime of the process.
type CredentialStore struct {
	cred domain.Credential
}

// NewCredentialStore hashes password once and keeps only the hash.
func NewCredentialStore(username, password string, cost int) (*CredentialStore, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password required")
	}
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{
		cred: domain.Credential{
			Username:     username,
			PasswordHash: hash,
			Role:         domain.RoleUser,
		},
	}, nil
}

// Verify reports whether username and password match the stored credential.
// The hash comparison always runs so a wrong username costs the same as a wrong password.
func (c *CredentialStore) Verify(username, password string) bool {
	if c == nil {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.cred.Username)) == 1
	passOK := CheckPassword(password, c.cred.PasswordHash)
	return userOK && passOK
}

// Credential returns a copy of the stored record.
func (c *CredentialStore) Credential() domain.Credential {
	return c.cred
}
