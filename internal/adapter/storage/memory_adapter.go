package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryAdapter keeps leases and idempotency keys in process. It is used
// when Redis is disabled and in tests.
type MemoryAdapter struct {
	mu          sync.Mutex
	now         func() time.Time
	idempotency map[string]time.Time
	sessions    map[string]time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return NewMemoryAdapterWithClock(time.Now)
}

func NewMemoryAdapterWithClock(now func() time.Time) *MemoryAdapter {
	return &MemoryAdapter{
		now:         now,
		idempotency: make(map[string]time.Time),
		sessions:    make(map[string]time.Time),
	}
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if deadline, ok := m.idempotency[key]; ok && now.Before(deadline) {
		return false, nil
	}
	m.idempotency[key] = now.Add(idempotencyKeyTTL)
	return true, nil
}

func (m *MemoryAdapter) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = m.now().Add(ttl)
	return nil
}

func (m *MemoryAdapter) SessionAlive(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(deadline) {
		delete(m.sessions, sessionID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryAdapter) DropSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}
