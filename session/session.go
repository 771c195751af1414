// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfunc/boardserver/network"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one websocket connection. Its ID doubles as the player id.
type Session struct {
	ID         string
	Conn       network.Connection
	Nickname   string
	CreatedAt  time.Time
	lastActive time.Time
	limiter    *rate.Limiter
	mutex      sync.RWMutex
}

// NewSession creates a session. A nil limiter lets every message through.
func NewSession(id string, conn network.Connection, limiter *rate.Limiter) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		limiter:    limiter,
	}
}

// NewLimiter builds a token bucket for one connection. A non-positive rate
// disables limiting.
func NewLimiter(eventsPerSecond float64, burst int) *rate.Limiter {
	if eventsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
}

// Allow reports whether the session may send another message now, and
// marks it active.
func (s *Session) Allow() bool {
	s.touch()
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

func (s *Session) SetNickname(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Nickname = name
}

func (s *Session) GetNickname() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Nickname
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Send delivers one packet to a session by id.
func (m *Manager) Send(sessionID string, msgID uint16, data []byte) error {
	s, ok := m.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}

// CloseAll closes every connection; used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
