package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// tokenKey is the single row key; the table never holds more than one token.
const tokenKey = "session_token"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tokens (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLite is the transactional backend over a local database file.
// Unlike Memory and File it is inherently asynchronous; its FastToken is
// served from an in-process mirror refreshed on every successful operation.
type SQLite struct {
	db *sql.DB

	mu     sync.RWMutex
	mirror string
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the
// schema. A failure to open degrades the caller to "no token found", so
// hosts should treat the error as non-fatal.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: failed to open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tokenstore: failed to migrate database: %w", err)
	}

	s := &SQLite{db: db}
	// Warm the fast-path mirror; an empty table is fine.
	if token, err := s.Token(ctx); err == nil {
		s.mirror = token
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Token(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM tokens WHERE key = ?`, tokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("tokenstore: failed to read token: %w", err)
	}

	s.mu.Lock()
	s.mirror = token
	s.mu.Unlock()
	return token, nil
}

func (s *SQLite) SetToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, tokenKey, token)
	if err != nil {
		return fmt.Errorf("tokenstore: failed to store token: %w", err)
	}

	s.mu.Lock()
	s.mirror = token
	s.mu.Unlock()
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("tokenstore: failed to clear token: %w", err)
	}

	s.mu.Lock()
	s.mirror = ""
	s.mu.Unlock()
	return nil
}

// FastToken implements FastReader from the in-process mirror. It reflects
// the last successful read or write in this process and may lag the
// database; call Token for the durable answer.
func (s *SQLite) FastToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}
