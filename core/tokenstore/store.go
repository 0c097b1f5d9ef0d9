// Package tokenstore persists the current session token on a client across
// restarts, behind one async contract and three interchangeable backends:
//
//   - Memory: volatile, per-process only
//   - File: a token file under a scoped directory, survives restarts
//   - SQLite: a transactional local database, survives restarts and
//     concurrent writers
//
// All backends implement Store. Backends that can answer without I/O also
// implement FastReader, a separately named best-effort accessor: it may lag
// the durable state and must never be used where staleness matters.
package tokenstore

import (
	"context"
	"errors"
)

// ErrNoToken is returned by Token when no token is stored.
var ErrNoToken = errors.New("tokenstore: no token stored")

// Store is the async persistence contract shared by all backends.
// SetToken and Clear are repeat-safe; Clear on an empty store succeeds.
type Store interface {
	// Token returns the stored token, or ErrNoToken when absent.
	Token(ctx context.Context) (string, error)
	// SetToken replaces the stored token.
	SetToken(ctx context.Context, token string) error
	// Clear removes the stored token. Idempotent.
	Clear(ctx context.Context) error
}

// FastReader is the optional synchronous fast path. FastToken returns the
// last token this process observed, or "" — a best-effort approximation of
// Token that never blocks on the backing medium.
type FastReader interface {
	FastToken() string
}
