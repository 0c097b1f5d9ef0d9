// Package sessionmonitor enforces local session expiry on a client. A
// signed token stays syntactically valid until its exp claim passes, and a
// disconnected client gets no server push, so a periodic clock is the only
// reliable expiry signal.
//
// The Monitor ticks on a fixed interval, compares now against the current
// session's expiry, and on crossing runs the configured sign-out exactly
// once per session. Replacing the session re-arms the check; clearing it
// tears the ticker down so no timer leaks past the session.
package sessionmonitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/authkit/core/auth"
	"github.com/dmitrymomot/authkit/core/logger"
)

// Config provides environment-based configuration for the monitor.
type Config struct {
	// CheckInterval is how often expiry is evaluated. Keep it coarser than
	// the smallest session duration you actually use.
	CheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"10s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{CheckInterval: 10 * time.Second}
}

// Monitor watches a single session for local expiry.
// All methods are safe for concurrent use.
type Monitor struct {
	interval time.Duration
	log      *slog.Logger

	// signOut is invoked with the expired session's ID before the expiry
	// callback fires.
	signOut func(ctx context.Context, sessionID string)
	// onExpired surfaces the expiry to the host (e.g. a user-visible notice).
	onExpired func(session auth.Session)

	mu      sync.Mutex
	session *auth.Session
	stop    chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSignOut sets the sign-out func run when expiry is detected.
func WithSignOut(fn func(ctx context.Context, sessionID string)) Option {
	return func(m *Monitor) { m.signOut = fn }
}

// WithOnExpired sets the callback fired after sign-out on expiry.
func WithOnExpired(fn func(session auth.Session)) Option {
	return func(m *Monitor) { m.onExpired = fn }
}

// New creates a stopped Monitor; it starts ticking once SetSession is
// called with a session. A nil logger falls back to slog.Default.
func New(cfg Config, log *slog.Logger, opts ...Option) *Monitor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Monitor{
		interval: cfg.CheckInterval,
		log:      log.With(logger.Component("sessionmonitor")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSession replaces the watched session and re-arms the periodic check.
// Passing nil clears the session and tears the ticker down.
func (m *Monitor) SetSession(session *auth.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.session = session
	if session == nil {
		return
	}

	stop := make(chan struct{})
	m.stop = stop
	go m.watch(stop)
}

// Stop clears the watched session and halts the ticker. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.session = nil
}

// watch owns the ticker for one session. It exits when the session is
// replaced, cleared, or expires.
func (m *Monitor) watch(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.checkExpiry(stop) {
				return
			}
		}
	}
}

// checkExpiry fires the sign-out path at most once and reports whether the
// watcher should exit.
func (m *Monitor) checkExpiry(stop chan struct{}) bool {
	m.mu.Lock()
	// A replaced session means a newer watcher owns the state now.
	if m.stop != stop || m.session == nil {
		m.mu.Unlock()
		return true
	}
	session := *m.session
	if !session.IsExpired() {
		m.mu.Unlock()
		return false
	}
	// Claim the expiry before releasing the lock so it fires exactly once.
	m.session = nil
	m.stopLocked()
	m.mu.Unlock()

	m.log.Info("session expired locally",
		logger.SessionID(session.SessionID),
		logger.UserID(session.UserID),
	)
	if m.signOut != nil {
		m.signOut(context.Background(), session.SessionID)
	}
	if m.onExpired != nil {
		m.onExpired(session)
	}
	return true
}

// stopLocked halts the current watcher. Caller must hold m.mu.
func (m *Monitor) stopLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}
