package auth

import (
	"crypto/subtle"
	"fmt"
)

// Auth checks bearer tokens of the admin API against the configured token.
// An empty configured token rejects everything.
type Auth struct {
	token []byte
}

func New(token string) *Auth {
	return &Auth{token: []byte(token)}
}

func (a *Auth) Authenticate(token string) error {
	if len(a.token) == 0 {
		return fmt.Errorf("api token not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return fmt.Errorf("invalid token")
	}
	return nil
}
