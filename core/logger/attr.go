// Package logger provides slog attribute helpers for the attributes this
// module logs most: errors, identities, and connection state.
//
// Helpers return an empty slog.Attr for nil/zero input, so call sites never
// need explicit nil checks:
//
//	log.Warn("reconnect failed", logger.Error(err), logger.Attempt(n))
package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the emitting subsystem.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UserID tags a log line with the acting user.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// SessionID tags a log line with the session in play.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// Attempt records a retry attempt counter.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Duration creates an attribute for a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
