package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// InMemoryCycleLock implements tracking.CycleLock with a local mutex.
// This is suitable for single-instance deployments and testing.
type InMemoryCycleLock struct {
	mu        sync.Mutex
	held      bool
	expiresAt time.Time
}

// NewInMemoryCycleLock creates a new in-memory cycle lock
func NewInMemoryCycleLock() *InMemoryCycleLock {
	return &InMemoryCycleLock{}
}

// Acquire tries to take the lock for at most ttl.
// An expired holder is treated as released, matching the Redis TTL behavior.
func (l *InMemoryCycleLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held && time.Now().Before(l.expiresAt) {
		return false, nil
	}

	l.held = true
	l.expiresAt = time.Now().Add(ttl)
	return true, nil
}

// Release frees the lock
func (l *InMemoryCycleLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// Ensure InMemoryCycleLock implements tracking.CycleLock
var _ tracking.CycleLock = (*InMemoryCycleLock)(nil)
