package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/authkit/core/auth"
	"github.com/dmitrymomot/authkit/core/logger"
	"github.com/dmitrymomot/authkit/core/syncchannel"
)

// writeTimeout bounds a single push write so one stalled peer cannot hold a
// write slot indefinitely.
const writeTimeout = 10 * time.Second

// hubConn wraps a websocket connection with its own write lock; the
// websocket package permits at most one concurrent writer per connection.
type hubConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *hubConn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the server side of the sync channel: it tracks live websocket
// connections per session and pushes session updates to every surface
// holding the same session.
type Hub struct {
	svc      *auth.Service
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]map[*hubConn]struct{} // session id -> connections
}

// NewHub creates a Hub over the auth service used to validate tokens on
// connect. A nil logger falls back to slog.Default.
func NewHub(svc *auth.Service, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		svc: svc,
		log: log.With(logger.Component("synchub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[string]map[*hubConn]struct{}),
	}
}

// Serve upgrades the request and keeps the connection registered until the
// peer goes away. The session token is taken from the "token" query
// parameter, matching the client dialer.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	claims := h.svc.VerifyToken(r.URL.Query().Get("token"))
	if claims == nil {
		writeError(w, auth.ErrInvalidToken)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", logger.Error(err))
		return
	}
	hc := &hubConn{conn: conn}
	h.register(claims.SessionID, hc)
	defer h.unregister(claims.SessionID, hc)

	// Inbound traffic is ignored; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("connection dropped", logger.SessionID(claims.SessionID), logger.Error(err))
			}
			return
		}
	}
}

// Push sends a session update to every connection registered under the
// session's ID. The connection set is snapshotted under the hub lock and
// the network writes happen outside it, so a stalled peer never blocks
// pushes to other sessions.
func (h *Hub) Push(session auth.Session) {
	payload, err := json.Marshal(syncchannel.Message{
		Type:    syncchannel.MessageTypeSessionUpdate,
		Session: session,
	})
	if err != nil {
		h.log.Error("failed to encode session update", logger.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*hubConn, 0, len(h.conns[session.SessionID]))
	for hc := range h.conns[session.SessionID] {
		conns = append(conns, hc)
	}
	h.mu.Unlock()

	for _, hc := range conns {
		if err := hc.write(payload); err != nil {
			h.log.Warn("push failed", logger.SessionID(session.SessionID), logger.Error(err))
		}
	}
}

// NotifySignOut pushes an already-expired session record so every surface
// drops the session immediately.
func (h *Hub) NotifySignOut(sessionID string) {
	now := time.Now()
	h.Push(auth.Session{
		SessionID: sessionID,
		CreatedAt: now.Add(-time.Second),
		ExpiresAt: now,
	})
}

func (h *Hub) register(sessionID string, hc *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*hubConn]struct{})
	}
	h.conns[sessionID][hc] = struct{}{}
}

func (h *Hub) unregister(sessionID string, hc *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[sessionID], hc)
	if len(h.conns[sessionID]) == 0 {
		delete(h.conns, sessionID)
	}
	_ = hc.conn.Close()
}
