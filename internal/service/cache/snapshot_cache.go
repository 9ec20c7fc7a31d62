package cache

import (
	"context"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache memoizes per-user financial snapshots for a short TTL. The
// pipeline, the forecast endpoint and the daily summary often read the same
// user within seconds. Concurrent misses for one user share a single load.
type SnapshotCache struct {
	next  repository.SnapshotReader
	store *gocache.Cache
	group singleflight.Group
}

func NewSnapshotCache(next repository.SnapshotReader, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

// Snapshot returns a cached snapshot when one is fresh. Callers treat it as
// read-only.
func (c *SnapshotCache) Snapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error) {
	if v, ok := c.store.Get(userID); ok {
		return v.(*models.FinancialSnapshot), nil
	}
	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		snap, err := c.next.Snapshot(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.store.SetDefault(userID, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.FinancialSnapshot), nil
}

func (c *SnapshotCache) ListUserIDs(ctx context.Context) ([]string, error) {
	return c.next.ListUserIDs(ctx)
}

// Invalidate drops userID's snapshot after its records change.
func (c *SnapshotCache) Invalidate(userID string) { c.store.Delete(userID) }

func (c *SnapshotCache) Len() int { return c.store.ItemCount() }

var _ repository.SnapshotReader = (*SnapshotCache)(nil)
