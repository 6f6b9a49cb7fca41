// Package session implements the Session Manager (spec component C7):
// per-connection state created at initialize, evicted after a
// transport-specific idle TTL by a periodic sweep.
package session

import (
	"sync"
	"time"

	"github.com/promptliano/mcpd/internal/clockid"
	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
)

// Store is the storage capability a Manager delegates to. The default,
// in-process implementation is backed by a reader-preferring sync.RWMutex
// (memoryStore below); an optional Redis-backed implementation is wired in
// internal/session/redis_store.go for multi-process deployments.
type Store interface {
	Put(s *domain.Session)
	Get(id string) (*domain.Session, bool)
	Delete(id string)
	Range(fn func(*domain.Session) bool)
}

// memoryStore is the default Store, a reader-preferring in-memory table —
// reads (the common case: activity touches) take the read lock, writes
// (create/evict) take the write lock, matching spec §5's "Session table is
// guarded by a reader-preferring lock".
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*domain.Session)}
}

func (m *memoryStore) Put(s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *memoryStore) Get(id string) (*domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *memoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *memoryStore) Range(fn func(*domain.Session) bool) {
	m.mu.RLock()
	snapshot := make([]*domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()
	for _, s := range snapshot {
		if !fn(s) {
			return
		}
	}
}

// Manager owns session lifecycle: creation at initialize, activity
// touch-ups, and TTL-based eviction via a periodic sweep.
type Manager struct {
	store Store
	clock domain.Clock

	stdioTTL      time.Duration
	httpTTL       time.Duration
	sweepInterval time.Duration

	stop chan struct{}
	once sync.Once
}

// Config configures TTLs and the sweep cadence; zero values fall back to
// the spec's defaults (30m stdio, 60m HTTP, 5m sweep).
type Config struct {
	StdioTTL      time.Duration
	HTTPTTL       time.Duration
	SweepInterval time.Duration
	Store         Store // nil uses the default in-memory store
}

// NewManager constructs a Session Manager. Call Start to begin the
// background sweep; callers that only need CRUD (e.g. tests) may skip Start.
func NewManager(clock domain.Clock, cfg Config) *Manager {
	if cfg.StdioTTL == 0 {
		cfg.StdioTTL = 30 * time.Minute
	}
	if cfg.HTTPTTL == 0 {
		cfg.HTTPTTL = 60 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.Store == nil {
		cfg.Store = newMemoryStore()
	}
	return &Manager{
		store:         cfg.Store,
		clock:         clock,
		stdioTTL:      cfg.StdioTTL,
		httpTTL:       cfg.HTTPTTL,
		sweepInterval: cfg.SweepInterval,
		stop:          make(chan struct{}),
	}
}

// Create starts a new session for transport ("stdio" or "http"), optionally
// bound to a project.
func (m *Manager) Create(transport string, projectID *int64, capabilities map[string]any, clientInfo domain.ClientInfo) *domain.Session {
	now := m.clock.Now()
	s := &domain.Session{
		ID:           clockid.NewSessionID(),
		ProjectID:    projectID,
		CreatedAt:    now,
		LastActivity: now,
		Capabilities: capabilities,
		ClientInfo:   clientInfo,
		Transport:    transport,
	}
	m.store.Put(s)
	return s
}

// Touch records activity on id, extending its TTL window. Returns
// CodeSessionExpired if id is unknown (already evicted or never created).
func (m *Manager) Touch(id string) (*domain.Session, error) {
	s, ok := m.store.Get(id)
	if !ok {
		return nil, mcperr.New(mcperr.CodeSessionExpired, "session not found").WithContext(id)
	}
	s.LastActivity = m.clock.Now()
	m.store.Put(s)
	return s, nil
}

// Get returns the session without updating activity.
func (m *Manager) Get(id string) (*domain.Session, bool) {
	return m.store.Get(id)
}

// Close explicitly ends a session (client-initiated close).
func (m *Manager) Close(id string) {
	m.store.Delete(id)
}

// ttlFor returns the configured TTL for a session's transport.
func (m *Manager) ttlFor(s *domain.Session) time.Duration {
	if s.Transport == "http" {
		return m.httpTTL
	}
	return m.stdioTTL
}

// Sweep removes every session idle longer than its transport's TTL. Returns
// the evicted session ids. Exposed directly so tests and the Temporal
// workflow adapter (see internal/sweep) can drive it without a ticker.
func (m *Manager) Sweep() []string {
	now := m.clock.Now()
	var evicted []string
	m.store.Range(func(s *domain.Session) bool {
		idleFor := time.Duration(now-s.LastActivity) * time.Millisecond
		if idleFor > m.ttlFor(s) {
			evicted = append(evicted, s.ID)
		}
		return true
	})
	for _, id := range evicted {
		m.store.Delete(id)
	}
	return evicted
}

// Start runs the periodic sweep in a background goroutine until Stop is
// called. This is the in-process ticker fallback used when Temporal is not
// configured (see DESIGN.md OQ-5 / SPEC_FULL.md §D.7).
func (m *Manager) Start() {
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the background sweep goroutine, if running. Safe to call more
// than once.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })
}
