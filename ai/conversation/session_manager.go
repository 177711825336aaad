package conversation

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/angelo/ai/metrics"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("conversation: session not found")

const (
	DefaultSessionCapacity = 1000
	DefaultSessionTTL      = 30 * time.Minute
)

// Session is one live conversation.
type Session struct {
	ID         string      `json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	Controller *Controller `json:"-"`
}

// ManagerConfig bounds the number and lifetime of sessions.
type ManagerConfig struct {
	Capacity int
	TTL      time.Duration
}

// ControllerFactory builds the controller of a new session.
type ControllerFactory func() *Controller

// Manager keeps sessions in an expiring LRU. Evicted sessions lose their state.
type Manager struct {
	cache   *expirable.LRU[string, *Session]
	factory ControllerFactory
	metrics *metrics.PrometheusExporter

	// mu serializes Open so one id never gets two controllers.
	mu sync.Mutex
}

// NewManager creates a session manager. exporter may be nil.
func NewManager(cfg ManagerConfig, factory ControllerFactory, exporter *metrics.PrometheusExporter) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultSessionCapacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	onEvict := func(id string, s *Session) {
		// Runs under the cache lock; must not call back into the cache.
		slog.Debug("conversation: session evicted", "session_id", id)
		s.Controller.Close()
	}
	return &Manager{
		cache:   expirable.NewLRU[string, *Session](cfg.Capacity, onEvict, cfg.TTL),
		factory: factory,
		metrics: exporter,
	}
}

// Create starts a new session with a fresh id.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(shortuuid.New())
}

// Open returns the session with id, creating it when absent.
func (m *Manager) Open(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.cache.Get(id); ok {
		m.cache.Add(id, s)
		return s
	}
	return m.add(id)
}

func (m *Manager) add(id string) *Session {
	s := &Session{ID: id, CreatedAt: time.Now(), Controller: m.factory()}
	m.cache.Add(id, s)
	m.metrics.SetActiveSessions(m.cache.Len())
	slog.Info("conversation: session created", "session_id", id)
	return s
}

// Get returns a live session and refreshes its TTL.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	m.cache.Add(id, s)
	return s, nil
}

// Delete drops a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	removed := m.cache.Remove(id)
	m.metrics.SetActiveSessions(m.cache.Len())
	return removed
}

func (m *Manager) Len() int {
	return m.cache.Len()
}

// Close drops every session.
func (m *Manager) Close() {
	m.cache.Purge()
	m.metrics.SetActiveSessions(0)
}
