// Package pg implements the auth persistence collaborator on PostgreSQL
// using pgx v5, with goose-managed schema migrations embedded in the binary.
//
// Store implements both auth.UserStore and the optional auth.SessionStore
// capability, so a service constructed over it persists session records and
// deletes them on sign-out.
package pg

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/core/auth"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// Store is a PostgreSQL-backed auth collaborator.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, name, roles, permissions, metadata, created_at, updated_at
		FROM users WHERE email = $1`, email))
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, name, roles, permissions, metadata, created_at, updated_at
		FROM users WHERE id = $1`, id))
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	metadata, err := json.Marshal(user.Metadata)
	if err != nil {
		return nil, fmt.Errorf("pg: failed to encode metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, roles, permissions, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.Name, user.Roles, user.Permissions, metadata,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, auth.ErrStoreDuplicateEmail
		}
		return nil, fmt.Errorf("pg: failed to create user: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, update auth.UserUpdate) (*auth.User, error) {
	current, err := s.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Email != nil {
		current.Email = *update.Email
	}
	if update.Name != nil {
		current.Name = *update.Name
	}
	if update.Roles != nil {
		current.Roles = update.Roles
	}
	if update.Permissions != nil {
		current.Permissions = update.Permissions
	}
	if update.Metadata != nil {
		if current.Metadata == nil {
			current.Metadata = map[string]any{}
		}
		for k, v := range update.Metadata {
			current.Metadata[k] = v
		}
	}

	metadata, err := json.Marshal(current.Metadata)
	if err != nil {
		return nil, fmt.Errorf("pg: failed to encode metadata: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, name = $3, roles = $4, permissions = $5, metadata = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		id, current.Email, current.Name, current.Roles, current.Permissions, metadata,
	)
	if err := row.Scan(&current.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrStoreUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, auth.ErrStoreDuplicateEmail
		}
		return nil, fmt.Errorf("pg: failed to update user: %w", err)
	}
	return current, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pg: failed to delete user: %w", err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, userID string, session *auth.Session) (*auth.Session, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, last_activity)
		VALUES ($1, $2, $3, $4, $5)`,
		session.SessionID, userID, session.CreatedAt, session.ExpiresAt, session.LastActivity,
	)
	if err != nil {
		return nil, fmt.Errorf("pg: failed to create session: %w", err)
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	var sess auth.Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at, expires_at, last_activity
		FROM sessions WHERE id = $1`, sessionID,
	).Scan(&sess.SessionID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrStoreSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: failed to get session: %w", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("pg: failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrStoreSessionNotFound
	}
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("pg: failed to delete user sessions: %w", err)
	}
	return nil
}

// scanUser maps a users row, decoding the JSONB metadata column.
func (s *Store) scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user     auth.User
		metadata []byte
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Roles, &user.Permissions,
		&metadata, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrStoreUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: failed to scan user: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &user.Metadata); err != nil {
			return nil, fmt.Errorf("pg: failed to decode metadata: %w", err)
		}
	}
	return &user, nil
}
