package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
)

type memoryEntry struct {
	session  *dataset.Session
	lastUsed time.Time
}

// MemoryStore keeps sessions in process. Sessions idle longer than ttl expire lazily;
// when maxCount is reached the least recently used session is evicted.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	ttl      time.Duration
	maxCount int
	logger   *logging.Logger
	closed   bool
}

// NewMemoryStore creates an in-memory session store. maxCount <= 0 means unlimited.
func NewMemoryStore(ttl time.Duration, maxCount int, logger *logging.Logger) *MemoryStore {
	if logger == nil {
		logger = logging.Global()
	}
	return &MemoryStore{
		entries:  make(map[string]*memoryEntry),
		ttl:      ttl,
		maxCount: maxCount,
		logger:   logger,
	}
}

// Put stores the session handle itself; later flag writes are visible without a save
func (m *MemoryStore) Put(_ context.Context, s *dataset.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("session store closed")
	}

	now := clock()
	m.expireLocked(now)

	if _, exists := m.entries[s.ID]; !exists && m.maxCount > 0 && len(m.entries) >= m.maxCount {
		m.evictOldestLocked()
	}
	m.entries[s.ID] = &memoryEntry{session: s, lastUsed: now}
	return nil
}

// Get returns the stored handle
func (m *MemoryStore) Get(_ context.Context, id string) (*dataset.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := clock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if m.expired(e, now) {
		delete(m.entries, id)
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	e.lastUsed = now
	return e.session, nil
}

// Delete removes a session
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(m.entries, id)
	return nil
}

// Len returns the number of live sessions
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(clock())
	return len(m.entries)
}

// Close drops all sessions
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	m.closed = true
	return nil
}

func (m *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.lastUsed) > m.ttl
}

func (m *MemoryStore) expireLocked(now time.Time) {
	for id, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, id)
			m.logger.Debug("Session expired", "session_id", id)
		}
	}
}

func (m *MemoryStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range m.entries {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID != "" {
		delete(m.entries, oldestID)
		m.logger.Warn("Session evicted, store is full", "session_id", oldestID, "max_count", m.maxCount)
	}
}
