package auth

import (
	"errors"
	"fmt"
)

// Login failures are reported with the same generic error whether the
// login name exists or not, so callers cannot enumerate accounts.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("too many failed attempts, try again later")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidIdentity    = errors.New("invalid identity")
	ErrLoginTaken         = errors.New("login name already in use")
)

// WeakPasswordError reports why a password failed the strength policy.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("password too weak: %s", e.Reason)
}
