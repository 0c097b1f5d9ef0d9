// Package jwt provides a thin HMAC-SHA256 token codec on top of
// github.com/golang-jwt/jwt/v5.
//
// The Service signs and parses compact JWS strings with a shared secret.
// Temporal claims (exp, nbf, iat) are validated on parse, and failures are
// mapped to stable sentinel errors so callers can branch with errors.Is
// without importing the underlying library.
//
// Usage:
//
//	service, err := jwt.NewFromString("your-256-bit-secret")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	type SessionClaims struct {
//		jwt.RegisteredClaims
//		SessionID string `json:"sid"`
//	}
//
//	token, err := service.Generate(SessionClaims{
//		RegisteredClaims: jwt.RegisteredClaims{
//			Subject:   userID,
//			IssuedAt:  jwt.NewNumericDate(time.Now()),
//			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
//		},
//		SessionID: sessionID,
//	})
//
//	var claims SessionClaims
//	if err := service.Parse(token, &claims); err != nil {
//		// errors.Is(err, jwt.ErrExpiredToken) etc.
//	}
package jwt

import (
	"errors"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Re-exported claim types so callers do not need a second jwt import.
type (
	// RegisteredClaims is the RFC 7519 registered claim set.
	RegisteredClaims = jwtlib.RegisteredClaims
	// Claims is any claim set accepted by Generate and Parse.
	Claims = jwtlib.Claims
	// NumericDate is a JSON-serializable unix timestamp claim value.
	NumericDate = jwtlib.NumericDate
)

// NewNumericDate converts a time.Time into a claim timestamp.
var NewNumericDate = jwtlib.NewNumericDate

var (
	// ErrMissingSigningKey is returned when constructing a Service without a secret.
	ErrMissingSigningKey = errors.New("jwt: signing key is required")
	// ErrSigningFailed is returned when token generation fails.
	ErrSigningFailed = errors.New("jwt: failed to sign token")
	// ErrInvalidToken is returned for malformed or otherwise unparseable tokens.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpiredToken is returned when the exp claim is in the past.
	ErrExpiredToken = errors.New("jwt: token has expired")
	// ErrInvalidSignature is returned when the signature does not match.
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	// ErrUnexpectedSigningMethod is returned when a token was signed with
	// anything other than HMAC-SHA256.
	ErrUnexpectedSigningMethod = errors.New("jwt: unexpected signing method")
)

// Service signs and verifies tokens with a single shared HMAC secret.
type Service struct {
	signingKey []byte
}

// New creates a Service with the given signing key.
func New(signingKey []byte) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	return &Service{signingKey: signingKey}, nil
}

// NewFromString creates a Service from a string secret.
func NewFromString(signingKey string) (*Service, error) {
	return New([]byte(signingKey))
}

// Generate signs the given claims and returns the compact token string.
func (s *Service) Generate(claims Claims) (string, error) {
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}
	return token, nil
}

// Parse validates the token signature and temporal claims, then unmarshals
// the claim set into claims, which must be a pointer.
func (s *Service) Parse(token string, claims Claims) error {
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigningMethod
		}
		return s.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return errors.Join(ErrExpiredToken, err)
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return errors.Join(ErrInvalidSignature, err)
		case errors.Is(err, ErrUnexpectedSigningMethod):
			return ErrUnexpectedSigningMethod
		default:
			return errors.Join(ErrInvalidToken, err)
		}
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
