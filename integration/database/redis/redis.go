// Package redis provides Redis client initialization with connection
// verification plus a Redis-backed token revocation list for the auth
// service.
//
// Connect validates the URL, pings the server, and retries transient
// failures before giving up. Revoker implements auth.Revoker by keeping one
// key per revoked session ID with a TTL matching the token's remaining
// lifetime, so the blacklist cleans itself up.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Domain-specific errors for consistent handling across the application.
// Use errors.Is to branch for retry logic and user-facing messages.
var (
	ErrFailedToParseRedisConnString = errors.New("redis: failed to parse connection string")
	ErrRedisNotReady                = errors.New("redis: not ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("redis: empty connection URL")
	ErrHealthcheckFailed            = errors.New("redis: healthcheck failed")
)

// Config provides environment-based configuration for the Redis connection.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a Redis client and verifies connectivity with a ping,
// retrying transient failures with a fixed interval between attempts.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client := redis.NewClient(opts)
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	_ = client.Close()
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// Healthcheck returns a probe function suitable for readiness endpoints.
func Healthcheck(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// revokedKeyPrefix namespaces revocation entries in the keyspace.
const revokedKeyPrefix = "authkit:revoked:"

// Revoker is a Redis-backed revocation list keyed by session ID.
// Entries expire on their own after the configured TTL, which should match
// the session lifetime so revocations outlive every token they cover.
type Revoker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRevoker creates a Revoker whose entries live for ttl.
func NewRevoker(client *redis.Client, ttl time.Duration) *Revoker {
	return &Revoker{client: client, ttl: ttl}
}

// IsRevoked reports whether the given session ID is on the revocation list.
func (r *Revoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to check revocation: %w", err)
	}
	return n > 0, nil
}

// Revoke adds the session ID to the revocation list. Revoking an already
// revoked ID refreshes its TTL and succeeds.
func (r *Revoker) Revoke(ctx context.Context, jti string) error {
	if err := r.client.Set(ctx, revokedKeyPrefix+jti, "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to revoke token: %w", err)
	}
	return nil
}
