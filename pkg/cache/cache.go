package cache

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotHeld is returned by Unlock when the key expired or belongs to
// another holder.
var ErrLockNotHeld = errors.New("cache: lock not held")

// Locker is a best-effort mutual exclusion keyed by string. Locks expire
// after ttl so a crashed holder cannot block others forever.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

var (
	_ Locker = (*RedisCache)(nil)
	_ Locker = (*MemoryLocker)(nil)
)
