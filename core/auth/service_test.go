package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/core/auth"
)

// memStore is an in-memory UserStore for tests. failWith forces every call
// to return the given error, to exercise the INTERNAL_ERROR mapping.
type memStore struct {
	mu       sync.Mutex
	byID     map[string]*auth.User
	byEmail  map[string]*auth.User
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		byID:    make(map[string]*auth.User),
		byEmail: make(map[string]*auth.User),
	}
}

func (s *memStore) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	user, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrStoreUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrStoreUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return nil, auth.ErrStoreDuplicateEmail
	}
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *memStore) UpdateUser(ctx context.Context, id string, update auth.UserUpdate) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrStoreUserNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	return user, nil
}

func (s *memStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[id]; ok {
		delete(s.byEmail, user.Email)
		delete(s.byID, id)
	}
	return nil
}

// sessionStore adds the optional session capability on top of memStore.
type sessionStore struct {
	*memStore
	sessions map[string]*auth.Session
	deletes  int
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		memStore: newMemStore(),
		sessions: make(map[string]*auth.Session),
	}
}

func (s *sessionStore) CreateSession(ctx context.Context, userID string, session *auth.Session) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return session, nil
}

func (s *sessionStore) GetSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, auth.ErrStoreSessionNotFound
	}
	return session, nil
}

func (s *sessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if _, ok := s.sessions[sessionID]; !ok {
		return auth.ErrStoreSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *sessionStore) DeleteUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func testConfig() auth.Config {
	return auth.Config{
		SecretKey:  "test-secret-key-at-least-32-bytes!",
		BcryptCost: 4, // keep the suite fast
		SessionTTL: time.Hour,
	}
}

func newService(t *testing.T, store auth.UserStore, opts ...auth.Option) *auth.Service {
	t.Helper()
	svc, err := auth.New(store, testConfig(), opts...)
	require.NoError(t, err)
	return svc
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires a secret key", func(t *testing.T) {
		t.Parallel()

		_, err := auth.New(newMemStore(), auth.Config{})
		assert.Error(t, err)
	})

	t.Run("nil store is allowed but operations fail", func(t *testing.T) {
		t.Parallel()

		svc, err := auth.New(nil, testConfig())
		require.NoError(t, err)

		_, err = svc.SignUp(context.Background(), auth.SignUpParams{Email: "a@b.com", Password: "x"})
		assert.ErrorIs(t, err, auth.ErrNoDatabase)

		_, err = svc.SignIn(context.Background(), auth.SignInParams{Email: "a@b.com", Password: "x"})
		assert.ErrorIs(t, err, auth.ErrNoDatabase)
	})
}

func TestService_SignUp(t *testing.T) {
	t.Parallel()

	t.Run("creates user with defaults and a matching token", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())

		result, err := svc.SignUp(context.Background(), auth.SignUpParams{
			Email:    "a@b.com",
			Password: "secret123",
			Name:     "A",
		})
		require.NoError(t, err)

		assert.Equal(t, "a@b.com", result.User.Email)
		assert.Equal(t, "A", result.User.Name)
		assert.Equal(t, []string{"user"}, result.User.Roles)
		assert.Empty(t, result.User.Permissions)
		assert.NotEmpty(t, result.Token)
		require.NotNil(t, result.Session)
		assert.True(t, result.Session.ExpiresAt.After(result.Session.CreatedAt))

		// Token claims and session timestamps stay in lock-step.
		claims := svc.VerifyToken(result.Token)
		require.NotNil(t, claims)
		assert.Equal(t, result.Session.SessionID, claims.SessionID)
		assert.Equal(t, result.User.ID, claims.UserID)
		assert.Equal(t, result.Session.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
		assert.Equal(t, result.Session.CreatedAt.Unix(), claims.IssuedAt.Unix())
	})

	t.Run("never exposes the password hash", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())

		result, err := svc.SignUp(context.Background(), auth.SignUpParams{
			Email:    "a@b.com",
			Password: "secret123",
			Metadata: map[string]any{"plan": "free"},
		})
		require.NoError(t, err)

		assert.NotContains(t, result.User.Metadata, auth.MetadataPasswordKey)
		assert.Equal(t, "free", result.User.Metadata["plan"])
		assert.NotContains(t, result.Session.User.Metadata, auth.MetadataPasswordKey)
	})

	t.Run("duplicate email fails with USER_EXISTS", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		ctx := context.Background()

		_, err := svc.SignUp(ctx, auth.SignUpParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)

		_, err = svc.SignUp(ctx, auth.SignUpParams{Email: "a@b.com", Password: "other456"})
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})

	t.Run("store failure maps to INTERNAL_ERROR", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.failWith = errors.New("connection refused")
		svc := newService(t, store)

		_, err := svc.SignUp(context.Background(), auth.SignUpParams{Email: "a@b.com", Password: "x"})
		assert.ErrorIs(t, err, auth.ErrInternal)
	})
}

func TestService_SignIn(t *testing.T) {
	t.Parallel()

	signUp := func(t *testing.T, svc *auth.Service) *auth.AuthResult {
		t.Helper()
		result, err := svc.SignUp(context.Background(), auth.SignUpParams{
			Email:    "real@x.com",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		return result
	}

	t.Run("valid credentials succeed", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		signUp(t, svc)

		result, err := svc.SignIn(context.Background(), auth.SignInParams{
			Email:    "real@x.com",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		assert.Equal(t, "real@x.com", result.User.Email)
		assert.NotContains(t, result.User.Metadata, auth.MetadataPasswordKey)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		signUp(t, svc)
		ctx := context.Background()

		_, unknownErr := svc.SignIn(ctx, auth.SignInParams{Email: "unknown@x.com", Password: "x"})
		_, wrongErr := svc.SignIn(ctx, auth.SignInParams{Email: "real@x.com", Password: "wrong"})

		require.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		require.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)

		var e1, e2 auth.Error
		require.ErrorAs(t, unknownErr, &e1)
		require.ErrorAs(t, wrongErr, &e2)
		assert.Equal(t, e1.Code, e2.Code)
		assert.Equal(t, e1.Message, e2.Message)
		assert.Equal(t, e1.StatusCode, e2.StatusCode)
	})

	t.Run("user without a stored hash fails with NO_PASSWORD", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		svc := newService(t, store)

		_, err := store.CreateUser(context.Background(), &auth.User{
			ID:    "u1",
			Email: "nohash@x.com",
		})
		require.NoError(t, err)

		_, err = svc.SignIn(context.Background(), auth.SignInParams{Email: "nohash@x.com", Password: "x"})
		assert.ErrorIs(t, err, auth.ErrNoPassword)
	})
}

func TestService_GetSession(t *testing.T) {
	t.Parallel()

	t.Run("reconstructs the session from the token alone", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		result, err := svc.SignUp(context.Background(), auth.SignUpParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)

		session, err := svc.GetSession(context.Background(), result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.Session.SessionID, session.SessionID)
		assert.Equal(t, result.User.ID, session.UserID)
		assert.Equal(t, result.Session.ExpiresAt.Unix(), session.ExpiresAt.Unix())
		assert.NotContains(t, session.User.Metadata, auth.MetadataPasswordKey)
		assert.False(t, session.LastActivity.IsZero())
	})

	t.Run("garbage token fails with INVALID_TOKEN", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		_, err := svc.GetSession(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token fails with INVALID_TOKEN", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		token, err := svc.GenerateToken("u1", "s1", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
		require.NoError(t, err)

		_, err = svc.GetSession(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("vanished user fails with USER_NOT_FOUND", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		svc := newService(t, store)
		result, err := svc.SignUp(context.Background(), auth.SignUpParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)

		require.NoError(t, store.DeleteUser(context.Background(), result.User.ID))

		_, err = svc.GetSession(context.Background(), result.Token)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("revoked session fails with INVALID_TOKEN", func(t *testing.T) {
		t.Parallel()

		revoker := &fakeRevoker{revoked: make(map[string]bool)}
		svc := newService(t, newMemStore(), auth.WithRevoker(revoker))

		result, err := svc.SignUp(context.Background(), auth.SignUpParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)

		require.NoError(t, svc.SignOut(context.Background(), result.Session.SessionID))

		_, err = svc.GetSession(context.Background(), result.Token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestService_SignOut(t *testing.T) {
	t.Parallel()

	t.Run("idempotent without session capability", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, newMemStore())
		ctx := context.Background()

		require.NoError(t, svc.SignOut(ctx, "any-session-id"))
		require.NoError(t, svc.SignOut(ctx, "any-session-id"))
	})

	t.Run("deletes the persisted session when the store supports it", func(t *testing.T) {
		t.Parallel()

		store := newSessionStore()
		svc := newService(t, store)
		ctx := context.Background()

		result, err := svc.SignUp(ctx, auth.SignUpParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)
		require.Contains(t, store.sessions, result.Session.SessionID)

		require.NoError(t, svc.SignOut(ctx, result.Session.SessionID))
		assert.NotContains(t, store.sessions, result.Session.SessionID)

		// Second sign-out hits a missing record and still succeeds.
		require.NoError(t, svc.SignOut(ctx, result.Session.SessionID))
		assert.Equal(t, 2, store.deletes)
	})
}

func TestService_Hooks(t *testing.T) {
	t.Parallel()

	t.Run("sign-in and sign-out hooks fire", func(t *testing.T) {
		t.Parallel()

		var (
			signIns  []auth.Session
			signOuts []string
		)
		svc := newService(t, newMemStore(),
			auth.WithOnSignIn(func(sess auth.Session) { signIns = append(signIns, sess) }),
			auth.WithOnSignOut(func(id string) { signOuts = append(signOuts, id) }),
		)
		ctx := context.Background()

		result, err := svc.SignUp(ctx, auth.SignUpParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)
		_, err = svc.SignIn(ctx, auth.SignInParams{Email: "a@b.com", Password: "secret123"})
		require.NoError(t, err)
		require.NoError(t, svc.SignOut(ctx, result.Session.SessionID))

		assert.Len(t, signIns, 2)
		assert.Equal(t, []string{result.Session.SessionID}, signOuts)
	})

	t.Run("error observer sees normalized errors", func(t *testing.T) {
		t.Parallel()

		var seen []error
		svc := newService(t, newMemStore(),
			auth.WithOnError(func(err error) { seen = append(seen, err) }),
		)

		_, err := svc.SignIn(context.Background(), auth.SignInParams{Email: "ghost@x.com", Password: "x"})
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		require.Len(t, seen, 1)
		assert.ErrorIs(t, seen[0], auth.ErrInvalidCredentials)
	})
}

func TestService_VerifyToken(t *testing.T) {
	t.Parallel()

	svc := newService(t, newMemStore())

	t.Run("nil for tampered token", func(t *testing.T) {
		t.Parallel()

		other, err := auth.New(newMemStore(), auth.Config{
			SecretKey:  "a-completely-different-signing-key",
			SessionTTL: time.Hour,
		})
		require.NoError(t, err)

		token, err := other.GenerateToken("u1", "s1", time.Now(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		assert.Nil(t, svc.VerifyToken(token))
	})

	t.Run("nil for garbage, never panics", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, svc.VerifyToken(""))
		assert.Nil(t, svc.VerifyToken("a.b.c"))
		assert.Nil(t, svc.VerifyToken("😀"))
	})
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (r *fakeRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

func (r *fakeRevoker) Revoke(ctx context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = true
	return nil
}

// nilStore signals absence the permissive way: a nil user with a nil error
// instead of ErrStoreUserNotFound.
type nilStore struct{}

func (nilStore) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, nil
}

func (nilStore) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return nil, nil
}

func (nilStore) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	return user, nil
}

func (nilStore) UpdateUser(ctx context.Context, id string, update auth.UserUpdate) (*auth.User, error) {
	return nil, nil
}

func (nilStore) DeleteUser(ctx context.Context, id string) error { return nil }

func TestService_NilUserFromStore(t *testing.T) {
	t.Parallel()

	svc := newService(t, nilStore{})

	t.Run("sign-in maps a nil user onto INVALID_CREDENTIALS", func(t *testing.T) {
		t.Parallel()

		result, err := svc.SignIn(context.Background(), auth.SignInParams{
			Email:    "ghost@x.com",
			Password: "whatever",
		})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("get-session maps a nil user onto USER_NOT_FOUND", func(t *testing.T) {
		t.Parallel()

		now := time.Now().Truncate(time.Second)
		token, err := svc.GenerateToken("user-id", "session-id", now, now.Add(time.Hour))
		require.NoError(t, err)

		session, err := svc.GetSession(context.Background(), token)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}
