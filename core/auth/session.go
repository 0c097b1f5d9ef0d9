package auth

import "time"

// Session is the authoritative record of "who is logged in, until when".
// It is fully reconstructable from a valid token plus a user lookup, so no
// server-side session record is required for validation.
type Session struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	User         User      `json:"user"` // sanitized snapshot
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// IsExpired reports whether the session is past its expiry.
func (s Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// TokenClaims is the decoded claim set of a session token. Timestamps are
// truncated to whole seconds, matching the wire encoding.
type TokenClaims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
