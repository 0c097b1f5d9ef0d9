package auth

import (
	"errors"
	"net/http"
)

// Error represents a structured authentication failure that implements the
// error interface. Every public operation of this package surfaces failures
// as an Error from the predefined taxonomy below; nothing escapes as a raw
// error or panic.
type Error struct {
	StatusCode int    `json:"status_code"` // HTTP-equivalent status code
	Code       string `json:"code"`        // Machine-readable error code
	Message    string `json:"message"`     // Human-readable message
	cause      error
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e Error) Unwrap() error {
	return e.cause
}

// Is matches errors by taxonomy code so errors.Is works on wrapped copies.
func (e Error) Is(target error) bool {
	var other Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithMessage returns a copy of the error with a custom message.
func (e Error) WithMessage(message string) Error {
	e.Message = message
	return e
}

// WithError returns a copy of the error carrying the underlying cause.
func (e Error) WithError(err error) Error {
	e.cause = err
	return e
}

// Predefined error taxonomy. INVALID_CREDENTIALS deliberately covers both
// "unknown email" and "wrong password" so callers cannot enumerate accounts;
// this is a hard invariant, not an oversight.
var (
	ErrNoDatabase         = Error{StatusCode: http.StatusInternalServerError, Code: "NO_DATABASE", Message: "no database adapter configured"}
	ErrUserExists         = Error{StatusCode: http.StatusBadRequest, Code: "USER_EXISTS", Message: "user with this email already exists"}
	ErrInvalidCredentials = Error{StatusCode: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrNoPassword         = Error{StatusCode: http.StatusInternalServerError, Code: "NO_PASSWORD", Message: "user has no password set"}
	ErrInvalidToken       = Error{StatusCode: http.StatusUnauthorized, Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrUserNotFound       = Error{StatusCode: http.StatusNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrInternal           = Error{StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "internal error"}

	// ErrInvalidRequest covers request-shape failures at a transport binding
	// (malformed body, missing required fields). It is deliberately distinct
	// from INVALID_CREDENTIALS and INVALID_TOKEN so the 401 codes keep their
	// authentication meaning.
	ErrInvalidRequest = Error{StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST", Message: "malformed request"}

	// ErrNetwork is used by client-side callers to report failed calls to
	// the server through the same taxonomy. The core itself never returns it.
	ErrNetwork = Error{Code: "NETWORK_ERROR", Message: "network request failed"}
)
