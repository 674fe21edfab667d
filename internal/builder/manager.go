package builder

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the manager is at capacity.
	ErrTooManySessions = errors.New("too many sessions")
)

func newSessionID() string {
	return uuid.New().String()
}

// Manager tracks live builder sessions.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int
	gestureCfg  gesture.Config
	base        []Option
	logger      *zap.Logger
}

// NewManager creates a session manager. Options in base apply to every
// session it creates. maxSessions <= 0 means unlimited.
func NewManager(logger *zap.Logger, maxSessions int, base ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		gestureCfg:  gesture.DefaultConfig(),
		base:        base,
		logger:      logger,
	}
}

// CreateSession starts a new session.
func (m *Manager) CreateSession(opts ...Option) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}

	all := make([]Option, 0, len(m.base)+len(opts)+2)
	all = append(all, WithLogger(m.logger), WithGestureConfig(m.gestureCfg))
	all = append(all, m.base...)
	all = append(all, opts...)
	session := NewSession(all...)
	m.sessions[session.ID] = session

	m.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.Int("active", len(m.sessions)),
	)
	return session, nil
}

// GetSession returns a session by id.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// RemoveSession closes and forgets a session.
func (m *Manager) RemoveSession(id string) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	session.Close()
	m.logger.Info("session removed", zap.String("session_id", id))
}

// GetAllSessions returns all live sessions.
func (m *Manager) GetAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetGestureConfig applies new gesture thresholds to every live session and
// to sessions created later.
func (m *Manager) SetGestureConfig(cfg gesture.Config) {
	m.mu.Lock()
	m.gestureCfg = cfg
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		session.SetGestureConfig(cfg)
	}
	m.logger.Info("gesture config updated",
		zap.Duration("hold_delay", cfg.HoldDelay),
		zap.Float64("move_threshold", cfg.MoveThreshold),
		zap.Int("sessions", len(sessions)),
	)
}

// CloseIdle removes sessions with no input since before now-idle and
// returns how many were removed.
func (m *Manager) CloseIdle(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle)

	m.mu.Lock()
	stale := make([]*Session, 0)
	for id, session := range m.sessions {
		if session.LastActive().Before(cutoff) {
			stale = append(stale, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range stale {
		session.Close()
		m.logger.Info("idle session closed", zap.String("session_id", session.ID))
	}
	return len(stale)
}
