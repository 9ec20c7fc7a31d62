package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLockerExclusive(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx := context.Background()

	if ok, _ := l.TryLock(ctx, "lock:a", time.Minute); !ok {
		t.Fatal("first lock must succeed")
	}
	if ok, _ := l.TryLock(ctx, "lock:a", time.Minute); ok {
		t.Fatal("second lock must fail while held")
	}
	if ok, _ := l.TryLock(ctx, "lock:b", time.Minute); !ok {
		t.Fatal("other keys are independent")
	}
	if l.Held() != 2 {
		t.Fatalf("held = %d, want 2", l.Held())
	}
	if err := l.Unlock(ctx, "lock:a"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if ok, _ := l.TryLock(ctx, "lock:a", time.Minute); !ok {
		t.Fatal("lock must be free after unlock")
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx := context.Background()

	if ok, _ := l.TryLock(ctx, "lock:a", 20*time.Millisecond); !ok {
		t.Fatal("lock must succeed")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := l.TryLock(ctx, "lock:a", time.Minute); !ok {
		t.Fatal("expired lock must be retaken")
	}
}

func TestMemoryLockerUnlockNotHeld(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	if err := l.Unlock(context.Background(), "lock:none"); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("err = %v, want ErrLockNotHeld", err)
	}
}
