package auth

import (
	"context"
	"time"
)

// User is a library account. It is created either by an administrative
// action or lazily on the first successful login of a new identity,
// and is never deleted implicitly.
type User struct {
	ID          int64
	Name        string
	IsAdmin     bool
	CreatedDate time.Time
}

// Identity is a login credential record, distinct from the library
// User it links to. Throttling state lives here, persisted, so it
// survives restarts.
type Identity struct {
	ID             int64
	LoginName      string
	PasswordHash   string
	HashAlgorithm  string
	FailedAttempts int
	LastFailure    time.Time
	UserID         int64 // 0 until the identity is resolved to a User
	CreatedDate    time.Time
}

// Token is a long-lived remember-me token bound to one identity.
// Expired tokens are inert; they are purged opportunistically.
type Token struct {
	ID         int64
	IdentityID int64
	Value      string
	Expires    time.Time
}

// Session is an in-memory login session for one user.
type Session struct {
	ID         string
	UserID     int64
	IdentityID int64
	Expires    time.Time
}

// Store is the persistence interface for identities, users and
// tokens. Lookups that miss return (nil, nil).
type Store interface {
	// CreateUserWithIdentity creates a user and its identity in one
	// transaction (administrative account creation).
	CreateUserWithIdentity(ctx context.Context, user *User, identity *Identity) error

	// CreateIdentity creates a bare identity with no linked user; the
	// user is created lazily on the identity's first login.
	CreateIdentity(ctx context.Context, identity *Identity) error

	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	GetIdentityByLogin(ctx context.Context, login string) (*Identity, error)
	SetPassword(ctx context.Context, identityID int64, hash, algorithm string) error

	// RecordFailedAttempt bumps the persisted failure counter, starting
	// a fresh streak when the previous failure predates windowStart.
	RecordFailedAttempt(ctx context.Context, identityID int64, windowStart, now time.Time) error

	// ResolveUser returns the identity's user, lazily creating and
	// linking one inside a single transaction so concurrent first
	// logins produce exactly one User row.
	ResolveUser(ctx context.Context, identityID int64) (*User, error)

	// CompleteLogin is ResolveUser plus a throttle-counter reset, in
	// the same transaction as the login success.
	CompleteLogin(ctx context.Context, identityID int64) (*User, error)

	CreateToken(ctx context.Context, token *Token) error
	GetToken(ctx context.Context, value string) (*Token, error)
	DeleteToken(ctx context.Context, value string) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
