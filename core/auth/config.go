package auth

import "time"

// Config provides environment-based configuration for the auth service.
type Config struct {
	// SecretKey is the token signing secret (required, no default)
	SecretKey string `env:"SESSION_JWT_SECRET" envDefault:""`

	// BcryptCost is the password hashing work factor
	BcryptCost int `env:"AUTH_BCRYPT_COST" envDefault:"10"`

	// SessionTTL is the session and token lifetime
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`

	// Issuer is the token issuer claim
	Issuer string `env:"AUTH_TOKEN_ISSUER" envDefault:"authkit"`
}

// DefaultConfig returns a Config with sensible defaults.
// Note: SecretKey must be set explicitly - it has no default.
func DefaultConfig() Config {
	return Config{
		BcryptCost: 10,
		SessionTTL: 7 * 24 * time.Hour,
		Issuer:     "authkit",
	}
}

// Option configures optional service collaborators. Lifecycle callbacks are
// invoked synchronously from the operation that triggered them and must not
// block for long.
type Option func(*Service)

// WithRevoker attaches a token revocation list checked on every GetSession
// and appended to on SignOut.
func WithRevoker(r Revoker) Option {
	return func(s *Service) {
		if r != nil {
			s.revoker = r
		}
	}
}

// WithOnSignIn registers a callback fired after a successful SignUp or SignIn.
func WithOnSignIn(fn func(session Session)) Option {
	return func(s *Service) { s.onSignIn = fn }
}

// WithOnSignOut registers a callback fired after SignOut completes.
func WithOnSignOut(fn func(sessionID string)) Option {
	return func(s *Service) { s.onSignOut = fn }
}

// WithOnError registers an observer for normalized operation errors.
// It sees every Error returned across the public boundary.
func WithOnError(fn func(err error)) Option {
	return func(s *Service) { s.onError = fn }
}
