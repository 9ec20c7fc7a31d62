package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
)

type countingReader struct {
	calls int32
	delay time.Duration
	err   error
}

func (r *countingReader) Snapshot(_ context.Context, userID string) (*models.FinancialSnapshot, error) {
	atomic.AddInt32(&r.calls, 1)
	time.Sleep(r.delay)
	if r.err != nil {
		return nil, r.err
	}
	return &models.FinancialSnapshot{UserID: userID, Income: 3000}, nil
}

func (r *countingReader) ListUserIDs(context.Context) ([]string, error) { return []string{"u1"}, nil }

func TestSnapshotCacheHitsAndInvalidates(t *testing.T) {
	r := &countingReader{}
	c := NewSnapshotCache(r, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := c.Snapshot(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if s.UserID != "u1" {
			t.Fatalf("got snapshot for %s", s.UserID)
		}
	}
	if got := atomic.LoadInt32(&r.calls); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}

	if _, err := c.Snapshot(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	c.Invalidate("u1")
	if _, err := c.Snapshot(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&r.calls); got != 3 {
		t.Errorf("loads = %d, want 3", got)
	}
}

func TestSnapshotCacheCoalescesConcurrentMisses(t *testing.T) {
	r := &countingReader{delay: 50 * time.Millisecond}
	c := NewSnapshotCache(r, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Snapshot(context.Background(), "u1"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&r.calls); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
}

func TestSnapshotCacheDoesNotCacheErrors(t *testing.T) {
	r := &countingReader{err: models.ErrNotFound}
	c := NewSnapshotCache(r, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.Snapshot(context.Background(), "ghost"); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	}
	if c.Len() != 0 {
		t.Errorf("cache holds %d items", c.Len())
	}
	if got := atomic.LoadInt32(&r.calls); got != 2 {
		t.Errorf("loads = %d, want 2", got)
	}
}
