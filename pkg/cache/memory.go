package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLocker is an in-process Locker for single-replica deployments and
// tests. Expired keys can be retaken before the janitor runs.
type MemoryLocker struct {
	store *gocache.Cache
}

// NewMemoryLocker purges expired locks every cleanup interval.
func NewMemoryLocker(cleanup time.Duration) *MemoryLocker {
	return &MemoryLocker{store: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	// Add fails while an unexpired item exists.
	if err := m.store.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryLocker) Unlock(_ context.Context, key string) error {
	if _, ok := m.store.Get(key); !ok {
		return ErrLockNotHeld
	}
	m.store.Delete(key)
	return nil
}

// Held reports the number of unexpired locks.
func (m *MemoryLocker) Held() int {
	return len(m.store.Items())
}
