// Package session gives every browser session its own ledger.
//
// Ledgers live only in memory and disappear when a session has been idle for
// the configured TTL or is pushed out by the session cap.
package session

import (
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/cache"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

// Factory builds the ledger of a new session.
type Factory func() *ledger.Ledger

// Manager maps session IDs to ledgers.
type Manager struct {
	store   *cache.LRUCache[*ledger.Ledger]
	factory Factory
	logger  *log.Logger
}

// Config bounds the session store.
type Config struct {
	MaxSessions int
	IdleTTL     time.Duration
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// NewManager creates a manager whose new sessions get ledgers from factory.
func NewManager(cfg Config, factory Factory, logger *log.Logger) *Manager {
	m := &Manager{
		factory: factory,
		logger:  logger.WithComponent(log.ComponentSession),
	}
	opts := []cache.Option[*ledger.Ledger]{
		cache.WithEvictCallback(func(id string, l *ledger.Ledger) {
			m.logger.Info("Session expired", log.FieldSessionID, id, log.FieldCount, l.Len())
		}),
	}
	if cfg.Now != nil {
		opts = append(opts, cache.WithClock[*ledger.Ledger](cfg.Now))
	}
	m.store = cache.NewLRUCache[*ledger.Ledger](cfg.MaxSessions, cfg.IdleTTL, opts...)
	return m
}

// Store exposes the underlying cache so a cache.Manager can sweep it.
func (m *Manager) Store() cache.Cleaner {
	return m.store
}

// Get returns the ledger of an existing, unexpired session.
func (m *Manager) Get(id string) (*ledger.Ledger, bool) {
	if id == "" {
		return nil, false
	}
	return m.store.Get(id)
}

// Create starts a new session with a fresh ledger.
func (m *Manager) Create() (string, *ledger.Ledger) {
	id := uuid.NewString()
	l := m.factory()
	m.store.Set(id, l)
	m.logger.Debug("Session created", log.FieldSessionID, id)
	return id, l
}

// GetOrCreate returns the session's ledger, starting a new session when id is
// unknown or expired. created reports whether the returned ID is new.
func (m *Manager) GetOrCreate(id string) (sid string, l *ledger.Ledger, created bool) {
	if l, ok := m.Get(id); ok {
		return id, l, false
	}
	sid, l = m.Create()
	return sid, l, true
}

// Drop ends a session.
func (m *Manager) Drop(id string) bool {
	return m.store.Delete(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.store.Size()
}
