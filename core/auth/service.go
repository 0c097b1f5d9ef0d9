package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/jwt"
	"github.com/dmitrymomot/authkit/pkg/password"
)

// Service orchestrates credential verification and session-token issuance.
// It is immutable after construction: concurrent calls share only the config
// and the store, so no in-process locking is needed. Duplicate-email races
// are resolved by the store's own uniqueness guarantees.
type Service struct {
	users    UserStore
	sessions SessionStore // nil in pure-token mode
	revoker  Revoker
	codec    *jwt.Service
	hasher   password.Hasher
	ttl      time.Duration
	issuer   string

	onSignIn  func(session Session)
	onSignOut func(sessionID string)
	onError   func(err error)
}

// AuthResult is returned by SignUp and SignIn. User is always sanitized.
type AuthResult struct {
	User    User     `json:"user"`
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}

// SignUpParams are the inputs to SignUp.
type SignUpParams struct {
	Email    string
	Password string
	Name     string
	Metadata map[string]any
}

// SignInParams are the inputs to SignIn.
type SignInParams struct {
	Email    string
	Password string
}

// New creates an auth service over the given user store. The store may be
// nil, in which case every operation fails with ErrNoDatabase. If the store
// also implements SessionStore, session records are persisted and sign-out
// deletes them; otherwise the service runs in pure-token mode.
func New(store UserStore, cfg Config, opts ...Option) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("auth: secret key is required")
	}
	codec, err := jwt.NewFromString(cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultConfig().SessionTTL
	}

	s := &Service{
		users:   store,
		revoker: NoOpRevoker{},
		codec:   codec,
		hasher:  password.New(cfg.BcryptCost),
		ttl:     ttl,
		issuer:  cfg.Issuer,
	}
	// Optional session capability is detected once here, never probed per call.
	if sessions, ok := store.(SessionStore); ok {
		s.sessions = sessions
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// HashPassword returns a one-way hash of plaintext using the configured
// work factor.
func (s *Service) HashPassword(plaintext string) (string, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return "", s.fail(ErrInternal.WithError(err))
	}
	return hash, nil
}

// VerifyPassword reports whether plaintext matches hash. The comparison is
// delegated to the hashing primitive and is timing-safe.
func (s *Service) VerifyPassword(plaintext, hash string) bool {
	return s.hasher.Verify(plaintext, hash)
}

// sessionClaims is the wire claim set of a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// GenerateToken signs a token whose claims mirror the given session
// timestamps truncated to whole seconds.
func (s *Service) GenerateToken(userID, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	token, err := s.codec.Generate(sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	})
	if err != nil {
		return "", s.fail(ErrInternal.WithError(err))
	}
	return token, nil
}

// VerifyToken decodes and validates a token. It returns nil on any failure
// (bad signature, malformed input, expiry) and never returns an error.
func (s *Service) VerifyToken(token string) *TokenClaims {
	var claims sessionClaims
	if err := s.codec.Parse(token, &claims); err != nil {
		return nil
	}
	if claims.Subject == "" || claims.SessionID == "" ||
		claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil
	}
	return &TokenClaims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// SignUp registers a new user, creates a session, and mints its token.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*AuthResult, error) {
	if s.users == nil {
		return nil, s.fail(ErrNoDatabase)
	}

	if existing, err := s.users.FindUserByEmail(ctx, params.Email); err != nil && !errors.Is(err, ErrStoreUserNotFound) {
		return nil, s.fail(ErrInternal.WithError(err))
	} else if existing != nil {
		return nil, s.fail(ErrUserExists)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, s.fail(ErrInternal.WithError(err))
	}

	metadata := make(map[string]any, len(params.Metadata)+1)
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	metadata[MetadataPasswordKey] = hash

	now := time.Now()
	user, err := s.users.CreateUser(ctx, &User{
		ID:          uuid.New().String(),
		Email:       params.Email,
		Name:        params.Name,
		Roles:       append([]string(nil), DefaultRoles...),
		Permissions: []string{},
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, ErrStoreDuplicateEmail) {
			return nil, s.fail(ErrUserExists)
		}
		return nil, s.fail(ErrInternal.WithError(err))
	}

	return s.establishSession(ctx, *user)
}

// SignIn authenticates credentials and establishes a fresh session.
// Unknown email and wrong password are indistinguishable to the caller:
// both return ErrInvalidCredentials. Do not "fix" this.
func (s *Service) SignIn(ctx context.Context, params SignInParams) (*AuthResult, error) {
	if s.users == nil {
		return nil, s.fail(ErrNoDatabase)
	}

	user, err := s.users.FindUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, ErrStoreUserNotFound) {
			return nil, s.fail(ErrInvalidCredentials)
		}
		return nil, s.fail(ErrInternal.WithError(err))
	}
	// Some stores signal absence as a nil user with a nil error.
	if user == nil {
		return nil, s.fail(ErrInvalidCredentials)
	}

	hash, ok := user.passwordHash()
	if !ok {
		return nil, s.fail(ErrNoPassword)
	}
	if !s.hasher.Verify(params.Password, hash) {
		return nil, s.fail(ErrInvalidCredentials)
	}

	return s.establishSession(ctx, *user)
}

// GetSession validates a token and reconstructs its session from the claims
// plus a fresh user lookup. No persisted session record is consulted except
// the revocation list, when one is configured.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	claims := s.VerifyToken(token)
	if claims == nil {
		return nil, s.fail(ErrInvalidToken)
	}

	if revoked, err := s.revoker.IsRevoked(ctx, claims.SessionID); err != nil {
		return nil, s.fail(ErrInternal.WithError(err))
	} else if revoked {
		return nil, s.fail(ErrInvalidToken)
	}

	if s.users == nil {
		return nil, s.fail(ErrNoDatabase)
	}
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrStoreUserNotFound) {
			return nil, s.fail(ErrUserNotFound)
		}
		return nil, s.fail(ErrInternal.WithError(err))
	}
	// Some stores signal absence as a nil user with a nil error.
	if user == nil {
		return nil, s.fail(ErrUserNotFound)
	}

	return &Session{
		SessionID:    claims.SessionID,
		UserID:       claims.UserID,
		User:         user.Sanitize(),
		CreatedAt:    claims.IssuedAt,
		ExpiresAt:    claims.ExpiresAt,
		LastActivity: time.Now(),
	}, nil
}

// SignOut revokes a session. It is idempotent: revoking an unknown or
// already revoked session still succeeds, since the subsystem is
// token-authoritative and the record may never have existed.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.revoker.Revoke(ctx, sessionID); err != nil {
		return s.fail(ErrInternal.WithError(err))
	}

	if s.sessions != nil {
		if err := s.sessions.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, ErrStoreSessionNotFound) {
			return s.fail(ErrInternal.WithError(err))
		}
	}

	if s.onSignOut != nil {
		s.onSignOut(sessionID)
	}
	return nil
}

// establishSession builds the session, persists it when the store supports
// that, mints the token, and fires the sign-in hook.
func (s *Service) establishSession(ctx context.Context, user User) (*AuthResult, error) {
	// Claim timestamps carry second precision; session timestamps are
	// truncated up front so both stay in lock-step.
	now := time.Now().Truncate(time.Second)
	session := &Session{
		SessionID:    uuid.New().String(),
		UserID:       user.ID,
		User:         user.Sanitize(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
	}

	if s.sessions != nil {
		stored, err := s.sessions.CreateSession(ctx, user.ID, session)
		if err != nil {
			return nil, s.fail(ErrInternal.WithError(err))
		}
		session = stored
	}

	token, err := s.GenerateToken(user.ID, session.SessionID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if s.onSignIn != nil {
		s.onSignIn(*session)
	}
	return &AuthResult{
		User:    session.User,
		Token:   token,
		Session: session,
	}, nil
}

// fail routes a normalized error through the OnError observer.
func (s *Service) fail(err Error) error {
	if s.onError != nil {
		s.onError(err)
	}
	return err
}
