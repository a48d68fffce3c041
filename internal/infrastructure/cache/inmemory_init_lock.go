package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appledger "github.com/propmgr/ledger/internal/application/ledger"
)

// InMemoryInitLock implements ChartInitLock with a process-local map
// Only suitable for single-instance deployments and testing
type InMemoryInitLock struct {
	mu    sync.Mutex
	ttl   time.Duration
	held  map[uuid.UUID]time.Time
	nowFn func() time.Time
}

// NewInMemoryInitLock creates an in-memory lock whose holds expire after ttl
// A non-positive ttl means holds never expire
func NewInMemoryInitLock(ttl time.Duration) *InMemoryInitLock {
	return &InMemoryInitLock{
		ttl:   ttl,
		held:  make(map[uuid.UUID]time.Time),
		nowFn: time.Now,
	}
}

// TryLock acquires the tenant's lock if nobody holds it or the previous hold expired
func (l *InMemoryInitLock) TryLock(_ context.Context, tenantID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if expiresAt, ok := l.held[tenantID]; ok {
		if expiresAt.IsZero() || now.Before(expiresAt) {
			return false, nil
		}
	}

	var expiresAt time.Time
	if l.ttl > 0 {
		expiresAt = now.Add(l.ttl)
	}
	l.held[tenantID] = expiresAt
	return true, nil
}

// Unlock releases the tenant's lock; releasing a free lock is a no-op
func (l *InMemoryInitLock) Unlock(_ context.Context, tenantID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, tenantID)
	return nil
}

// Size returns the number of held locks (for testing/monitoring)
func (l *InMemoryInitLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

var _ appledger.ChartInitLock = (*InMemoryInitLock)(nil)
