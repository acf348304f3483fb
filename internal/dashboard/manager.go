package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/upstream"
)

// DefaultSessionTTL is how long an unviewed dashboard is kept.
const DefaultSessionTTL = 30 * time.Minute

// ManagerConfig holds configuration for the session manager.
type ManagerConfig struct {
	// Dashboard is applied to every dashboard the manager creates.
	Dashboard Config

	// SessionTTL expires dashboards not viewed for this long.
	// Default: 30 minutes
	SessionTTL time.Duration

	// Logger for session operations.
	Logger zerolog.Logger
}

// Manager tracks open dashboards by session ID.
type Manager struct {
	cfg    Config
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Dashboard
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := cfg.Dashboard.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:      cfg.Dashboard,
		ttl:      ttl,
		logger:   cfg.Logger,
		now:      now,
		sessions: make(map[string]*Dashboard),
	}
}

// Create opens a new dashboard on the overview tab.
func (m *Manager) Create() *Dashboard {
	id := "ses_" + uuid.New().String()
	d := New(id, m.cfg)

	m.mu.Lock()
	m.sessions[id] = d
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info().
		Str("session_id", id).
		Int("sessions", count).
		Msg("dashboard session opened")

	return d
}

// Get returns the dashboard with the given ID.
func (m *Manager) Get(id string) (*Dashboard, error) {
	m.mu.RLock()
	d, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return d, nil
}

// Close closes and forgets the dashboard with the given ID.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	d, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	d.Close()

	m.logger.Info().Str("session_id", id).Msg("dashboard session closed")
	return nil
}

// Count returns the number of open dashboards.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Invalidate re-triggers the domain on every dashboard where it is enabled
// and returns how many fetches were started.
func (m *Manager) Invalidate(domain upstream.Domain) int {
	m.mu.RLock()
	dashboards := make([]*Dashboard, 0, len(m.sessions))
	for _, d := range m.sessions {
		dashboards = append(dashboards, d)
	}
	m.mu.RUnlock()

	started := 0
	for _, d := range dashboards {
		if d.Invalidate(domain) {
			started++
		}
	}

	m.logger.Debug().
		Str("domain", string(domain)).
		Int("refetched", started).
		Msg("domain invalidated")

	return started
}

// Sweep closes dashboards that have not been viewed within the TTL and
// returns how many were closed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Dashboard
	for id, d := range m.sessions {
		if d.LastSeen().Before(cutoff) {
			expired = append(expired, d)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, d := range expired {
		d.Close()
	}

	if len(expired) > 0 {
		m.logger.Info().Int("expired", len(expired)).Msg("expired dashboard sessions closed")
	}
	return len(expired)
}

// Run sweeps expired sessions periodically until ctx is done, then closes
// every remaining dashboard.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Dashboard)
	m.mu.Unlock()

	for _, d := range sessions {
		d.Close()
	}
}
