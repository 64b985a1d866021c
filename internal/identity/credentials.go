package identity

import (
	cjerrors "codejudge/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes and verifies passwords, kept separate from Identity so
// handlers never see a raw password after it crosses this boundary.
type Credentials struct{}

// NewCredentials builds a Credentials capability.
func NewCredentials() *Credentials { return &Credentials{} }

// Hash returns a bcrypt hash of password.
func (c *Credentials) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", cjerrors.Wrap(err, cjerrors.InternalServerError)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash.
func (c *Credentials) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
