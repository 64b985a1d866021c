// Package identity provides the Identity and Credentials capabilities the
// design notes call for: the HTTP handlers know only usernames, never token
// internals or hashing details.
package identity

import (
	"time"

	cjerrors "codejudge/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the token payload: {username, exp}, per spec §6.
type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// tokenTTL is the bearer token's fixed lifetime.
const tokenTTL = 30 * time.Minute

// Identity issues and validates bearer tokens carrying a username.
type Identity struct {
	secret []byte
}

// NewIdentity builds an Identity signing with secret. secret must be
// non-empty; callers load it from the process environment at startup.
func NewIdentity(secret string) *Identity {
	return &Identity{secret: []byte(secret)}
}

// IssueToken signs a fresh token for username, expiring in 30 minutes.
func (i *Identity) IssueToken(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", cjerrors.Wrap(err, cjerrors.InternalServerError)
	}
	return signed, nil
}

// UsernameFromToken validates tok and returns the username it carries.
func (i *Identity) UsernameFromToken(tok string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tok, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return "", cjerrors.Wrap(err, cjerrors.TokenInvalid)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Username == "" {
		return "", cjerrors.New(cjerrors.TokenInvalid)
	}
	return c.Username, nil
}
