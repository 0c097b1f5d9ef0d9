// Package syncchannel propagates session changes to every live client
// holding the same token: a sign-out on one tab or a server-pushed session
// update reaches all surfaces through a websocket push channel.
//
// The Channel reconnects with exponential backoff after unexpected closes
// and settles into StateDisconnected once the attempt cap is reached;
// Connect must then be called again explicitly. Malformed inbound payloads
// are dropped and logged, never fatal.
package syncchannel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/authkit/core/auth"
	"github.com/dmitrymomot/authkit/core/logger"
)

// MessageTypeSessionUpdate is the only inbound message type the channel
// recognizes; everything else is dropped.
const MessageTypeSessionUpdate = "session_update"

// Message is the wire shape of a push update.
type Message struct {
	Type    string       `json:"type"`
	Session auth.Session `json:"session"`
}

// Listener receives session updates in arrival order; the last received
// update wins, there is no reordering buffer.
type Listener func(session auth.Session)

// Config provides environment-based configuration for the sync channel.
type Config struct {
	// URL is the websocket endpoint, e.g. wss://api.example.com/sync
	URL string `env:"SYNC_WS_URL" envDefault:""`

	// BackoffBase is the first retry delay; attempt n waits base * 2^(n-1)
	BackoffBase time.Duration `env:"SYNC_BACKOFF_BASE" envDefault:"1s"`

	// MaxAttempts caps reconnect attempts before giving up
	MaxAttempts int `env:"SYNC_MAX_ATTEMPTS" envDefault:"5"`

	// HandshakeTimeout bounds the websocket dial
	HandshakeTimeout time.Duration `env:"SYNC_HANDSHAKE_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns a Config with sensible defaults.
// Note: URL must be set explicitly - it has no default.
func DefaultConfig() Config {
	return Config{
		BackoffBase:      time.Second,
		MaxAttempts:      5,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Channel is a reconnecting websocket client for session updates.
// All methods are safe for concurrent use.
type Channel struct {
	cfg    Config
	log    *slog.Logger
	dialer *websocket.Dialer

	mu        sync.Mutex
	state     State
	attempt   int
	conn      *websocket.Conn
	cancel    context.CancelFunc
	gen       uint64 // invalidates goroutines from previous Connect calls
	listeners []Listener
}

// New creates a Channel. A nil logger falls back to slog.Default.
func New(cfg Config, log *slog.Logger) *Channel {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		cfg: cfg,
		log: log.With(logger.Component("syncchannel")),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// OnSessionUpdate registers a listener for inbound session updates.
// Listeners registered after Connect still receive subsequent messages.
func (c *Channel) OnSessionUpdate(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the channel for the given token, replacing any previous
// connection. The attempt counter restarts at zero. The channel keeps
// running until Disconnect is called, ctx is canceled, or the reconnect
// attempt cap is reached.
func (c *Channel) Connect(ctx context.Context, token string) {
	c.mu.Lock()
	c.closeLocked()
	c.gen++
	gen := c.gen
	c.attempt = 0
	c.state = StateConnecting

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx, gen, token)
}

// Disconnect force-closes the socket, resets the attempt counter, and stops
// any pending reconnect. Idempotent: safe to call from any state, including
// when already disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	c.gen++ // orphan any in-flight run goroutine
	c.attempt = 0
	c.state = StateDisconnected
}

// run owns the dial/read/backoff loop for one Connect call. It exits as
// soon as its generation is superseded.
func (c *Channel) run(ctx context.Context, gen uint64, token string) {
	for {
		conn, err := c.dial(ctx, token)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err == nil {
			c.conn = conn
			c.attempt = 0
			c.state = StateConnected
			c.mu.Unlock()

			c.log.Debug("connected")
			readErr := c.readLoop(conn, gen)
			c.log.Debug("connection closed", logger.Error(readErr))
		} else {
			c.mu.Unlock()
			c.log.Warn("dial failed", logger.Error(err))
		}

		if ctx.Err() != nil {
			return
		}
		if !c.scheduleRetry(ctx, gen) {
			return
		}
	}
}

// dial resolves the endpoint and opens the websocket, passing the session
// token as a query parameter.
func (c *Channel) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// readLoop consumes inbound messages until the connection drops. Malformed
// payloads and unrecognized types are dropped and logged; they never close
// the connection.
func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("dropping malformed payload", logger.Error(err))
			continue
		}
		if msg.Type != MessageTypeSessionUpdate {
			c.log.Warn("dropping unrecognized message", slog.String("type", msg.Type))
			continue
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return nil
		}
		listeners := append([]Listener(nil), c.listeners...)
		c.mu.Unlock()

		// Arrival order, last received wins.
		for _, fn := range listeners {
			fn(msg.Session)
		}
	}
}

// scheduleRetry waits out the backoff for the next attempt. It returns
// false when the attempt cap is reached (the channel settles into
// StateDisconnected) or the context is done.
func (c *Channel) scheduleRetry(ctx context.Context, gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.conn = nil
	c.attempt++
	attempt := c.attempt
	if attempt > c.cfg.MaxAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warn("giving up after max reconnect attempts", logger.Attempt(attempt-1))
		return false
	}
	c.state = StateReconnecting
	c.mu.Unlock()

	delay := Backoff(c.cfg.BackoffBase, attempt)
	c.log.Info("reconnecting", logger.Attempt(attempt), logger.Duration(delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state = StateConnecting
	c.mu.Unlock()
	return true
}

// Backoff returns the delay before the given attempt (starting at 1):
// base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// closeLocked tears down the current connection and reconnect loop.
// Caller must hold c.mu.
func (c *Channel) closeLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
