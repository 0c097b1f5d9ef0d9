package auth

import (
	"context"
	"errors"
)

// Store errors returned by adapter implementations. The service maps them to
// its public taxonomy; adapters should wrap these rather than invent their own.
var (
	// ErrStoreUserNotFound signals an absent user record.
	ErrStoreUserNotFound = errors.New("auth: user not found in store")
	// ErrStoreSessionNotFound signals an absent session record.
	ErrStoreSessionNotFound = errors.New("auth: session not found in store")
	// ErrStoreDuplicateEmail signals a unique-constraint violation on email.
	ErrStoreDuplicateEmail = errors.New("auth: email already exists in store")
)

// UserStore is the required persistence capability. Implementations own
// consistency guarantees (e.g. the unique index behind ErrStoreDuplicateEmail);
// the service takes no in-process locks.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionStore is the optional persistence capability for session records.
// When the UserStore passed to New also implements SessionStore, the service
// persists sessions and deletes them on sign-out; otherwise it runs in
// pure-token mode where a valid, unexpired token is the session.
type SessionStore interface {
	CreateSession(ctx context.Context, userID string, session *Session) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

// Revoker handles token revocation using JWT IDs (the session ID here).
// Implementations can use Redis, databases, or in-memory storage.
type Revoker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
}

// NoOpRevoker never revokes tokens. Used when revocation is not required.
type NoOpRevoker struct{}

func (NoOpRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) { return false, nil }
func (NoOpRevoker) Revoke(ctx context.Context, jti string) error            { return nil }
