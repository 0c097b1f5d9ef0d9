// Package middleware provides a net/http adapter that authenticates
// requests against the auth service and exposes the resolved session
// through the request context.
package middleware

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authkit/core/auth"
	"github.com/dmitrymomot/authkit/httpapi"
)

// sessionContextKey is an unexported key type to avoid context collisions.
type sessionContextKey struct{}

// AuthConfig configures the Auth middleware.
type AuthConfig struct {
	// Service validates tokens and resolves sessions (required)
	Service *auth.Service
	// TokenExtractor overrides how the token is read from the request
	// (default: Authorization header, Bearer scheme)
	TokenExtractor func(r *http.Request) string
	// ErrorHandler overrides the 401 response for failed authentication
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// Auth returns middleware that rejects requests without a valid session
// token and stores the resolved session in the context for handlers.
func Auth(svc *auth.Service) func(http.Handler) http.Handler {
	return AuthWithConfig(AuthConfig{Service: svc})
}

// AuthWithConfig is Auth with explicit configuration.
func AuthWithConfig(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Service == nil {
		panic("middleware: auth service is required")
	}
	extract := cfg.TokenExtractor
	if extract == nil {
		extract = httpapi.BearerToken
	}
	fail := cfg.ErrorHandler
	if fail == nil {
		fail = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extract(r)
			if token == "" {
				fail(w, r, auth.ErrInvalidToken)
				return
			}
			session, err := cfg.Service.GetSession(r.Context(), token)
			if err != nil {
				fail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, *session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session stored by the Auth middleware.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(auth.Session)
	return session, ok
}
