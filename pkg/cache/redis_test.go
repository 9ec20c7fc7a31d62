package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisCacheUnlockWithoutLock(t *testing.T) {
	// no command reaches the server when the key was never taken here
	c := newRedisCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "test")
	defer c.Close()

	if err := c.Unlock(context.Background(), "lock:a"); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("err = %v, want ErrLockNotHeld", err)
	}
}

func TestRedisCacheWrapKey(t *testing.T) {
	c := newRedisCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "fg")
	defer c.Close()

	if got := c.wrapKey(GenerateKey("lock:action", "a1")); got != "fg:lock:action:a1" {
		t.Fatalf("key = %q", got)
	}
}
