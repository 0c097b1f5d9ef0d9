// Package httpapi binds the logical auth operations to plain net/http.
// It is deliberately thin: request decoding, the response envelope, and a
// websocket hub for pushing session updates. All protocol content lives in
// core/auth and core/syncchannel.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/core/auth"
)

// Handler exposes the auth service over HTTP.
type Handler struct {
	svc *auth.Service
	hub *Hub // optional; nil disables push notifications
}

// NewHandler creates a Handler. hub may be nil.
func NewHandler(svc *auth.Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// Routes registers the auth endpoints on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signup", h.SignUp)
	mux.HandleFunc("POST /auth/signin", h.SignIn)
	mux.HandleFunc("GET /auth/session", h.GetSession)
	mux.HandleFunc("POST /auth/signout", h.SignOut)
	if h.hub != nil {
		mux.HandleFunc("GET /auth/sync", h.hub.Serve)
	}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signOutRequest struct {
	SessionID string `json:"sessionId"`
}

type authResponse struct {
	User  auth.User `json:"user"`
	Token string    `json:"token"`
}

// SignUp handles POST /auth/signup.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, auth.ErrInvalidRequest.WithMessage("malformed request body"))
		return
	}
	result, err := h.svc.SignUp(r.Context(), auth.SignUpParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, authResponse{User: result.User, Token: result.Token})
}

// SignIn handles POST /auth/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, auth.ErrInvalidRequest.WithMessage("malformed request body"))
		return
	}
	result, err := h.svc.SignIn(r.Context(), auth.SignInParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, authResponse{User: result.User, Token: result.Token})
}

// GetSession handles GET /auth/session with a Bearer token.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		writeError(w, auth.ErrInvalidToken)
		return
	}
	session, err := h.svc.GetSession(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, session)
}

// SignOut handles POST /auth/signout and notifies other surfaces holding
// the same session through the hub, if one is attached.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req signOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, auth.ErrInvalidRequest.WithMessage("session id is required"))
		return
	}
	if err := h.svc.SignOut(r.Context(), req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	if h.hub != nil {
		h.hub.NotifySignOut(req.SessionID)
	}
	writeData(w, nil)
}

// BearerToken extracts a Bearer token from the Authorization header,
// returning "" when absent or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
