package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/authkit/core/auth"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody mirrors the auth error taxonomy on the wire.
type ErrorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// writeJSON encodes the envelope with the given HTTP status.
func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// writeError normalizes any error into the envelope. Errors outside the
// auth taxonomy are reported as INTERNAL_ERROR without leaking details.
func writeError(w http.ResponseWriter, err error) {
	var authErr auth.Error
	if !errors.As(err, &authErr) {
		authErr = auth.ErrInternal
	}
	status := authErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, Response{
		Success: false,
		Error: &ErrorBody{
			Code:       authErr.Code,
			Message:    authErr.Message,
			StatusCode: status,
		},
	})
}
