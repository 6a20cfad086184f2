package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/giygas/drugsafe-api/metrics"
)

// ManagerConfig bounds the session table.
type ManagerConfig struct {
	TTL               time.Duration // idle time before a session expires
	MaxSessions       int           // least recently used sessions are evicted beyond this
	ExtractionTimeout time.Duration
}

// Manager owns every live session. Sessions expire after TTL without
// access; evicted sessions are closed, cancelling their extractions.
type Manager struct {
	sessions  *expirable.LRU[string, *Session]
	extractor interfaces.Extractor
	timeout   time.Duration
}

// NewManager creates an empty session table.
func NewManager(extractor interfaces.Extractor, cfg ManagerConfig) *Manager {
	m := &Manager{
		extractor: extractor,
		timeout:   cfg.ExtractionTimeout,
	}
	m.sessions = expirable.NewLRU[string, *Session](cfg.MaxSessions, m.onEvict, cfg.TTL)
	return m
}

// onEvict runs under the cache lock and must not call back into the cache.
func (m *Manager) onEvict(id string, s *Session) {
	if s.close() {
		metrics.SessionsActive.Dec()
		logging.Debug("Session closed", "session_id", id)
	}
}

// Create registers a new empty session.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.extractor, m.timeout)
	metrics.SessionsActive.Inc()
	m.sessions.Add(s.ID, s)
	return s
}

// Get returns a live session and renews its expiry.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok || s.Closed() {
		return nil, entities.ErrSessionNotFound
	}
	m.sessions.Add(id, s)
	return s, nil
}

// Delete closes and forgets a session. It reports whether it existed.
func (m *Manager) Delete(id string) bool {
	return m.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Close closes every session.
func (m *Manager) Close() {
	m.sessions.Purge()
}
