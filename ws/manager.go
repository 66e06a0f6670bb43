// Package ws carries the duplex question channel: connection lifecycle and
// the per-session message loop.
package ws

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Message is the single outbound frame shape: exactly one of the fields is
// set, so the wire form is {"answer": ...} or {"error": ...}.
type Message struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

func AnswerMessage(text string) Message {
	return Message{Answer: text}
}

func ErrorMessage(text string) Message {
	return Message{Error: text}
}

// Manager owns the set of live sessions.
type Manager struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu     sync.Mutex
	active map[*Session]struct{}
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
		active: map[*Session]struct{}{},
	}
}

// Connect upgrades the request and registers the session. On upgrade failure
// the upgrader has already written an HTTP error response.
func (m *Manager) Connect(w http.ResponseWriter, r *http.Request) (*Session, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade connection: %w", err)
	}

	session := &Session{conn: conn, clientID: ClientIdentity(r)}
	m.mu.Lock()
	m.active[session] = struct{}{}
	m.mu.Unlock()

	return session, nil
}

// Disconnect removes the session from the active set and closes its
// connection. Disconnecting an already-removed session is a no-op.
func (m *Manager) Disconnect(session *Session) {
	if session == nil {
		return
	}

	m.mu.Lock()
	_, registered := m.active[session]
	delete(m.active, session)
	m.mu.Unlock()

	if !registered {
		return
	}
	session.close()
}

// ActiveCount reports how many sessions are currently registered.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Session is one live duplex connection.
type Session struct {
	conn     *websocket.Conn
	clientID string

	mu     sync.Mutex
	closed bool
}

func (s *Session) ClientID() string {
	return s.clientID
}

// Receive blocks until the next text frame arrives or the channel fails.
func (s *Session) Receive() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

// Send writes one outbound frame. Sending on a closed session is a no-op so
// a disconnect racing a send never surfaces as a failure.
func (s *Session) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.closed = true
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.Close()
}

// ClientIdentity derives the rate-limiting identity. The forwarded-for
// header wins so identities survive a reverse proxy; the socket peer host is
// the fallback. The identity persists across reconnects from the same client.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
