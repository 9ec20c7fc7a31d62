package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinGenius/internal/domain/models"
)

type fakeSnapshots struct {
	snaps map[string]*models.FinancialSnapshot
	err   error
}

func (f *fakeSnapshots) Snapshot(_ context.Context, userID string) (*models.FinancialSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.snaps[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return s, nil
}

func (f *fakeSnapshots) ListUserIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.snaps))
	for id := range f.snaps {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeActions mimics the store's conditional pending -> decided update.
type fakeActions struct {
	mu      sync.Mutex
	batches []*models.ProposedActionBatch
	byID    map[string]*models.ProposedAction
	effects int
	saveErr error
}

func newFakeActions() *fakeActions {
	return &fakeActions{byID: map[string]*models.ProposedAction{}}
}

func (f *fakeActions) SaveBatch(_ context.Context, b *models.ProposedActionBatch) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b)
	for i := range b.Actions {
		a := b.Actions[i]
		f.byID[a.ID] = &a
	}
	return nil
}

func (f *fakeActions) add(a models.ProposedAction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = &a
}

func (f *fakeActions) GetAction(_ context.Context, id string) (*models.ProposedAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeActions) ListActions(_ context.Context, userID string, status models.ActionStatus) ([]models.ProposedAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProposedAction
	for _, a := range f.byID {
		if a.UserID == userID && (status == "" || a.Status == status) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeActions) ApplyAction(_ context.Context, a *models.ProposedAction, at time.Time) (bool, error) {
	return f.decide(a.ID, models.ActionApplied, at)
}

func (f *fakeActions) RejectAction(_ context.Context, id string, at time.Time) (bool, error) {
	return f.decide(id, models.ActionRejected, at)
}

func (f *fakeActions) decide(id string, to models.ActionStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if a.Status != models.ActionPending {
		return false, nil
	}
	// widen the window for concurrent callers
	time.Sleep(time.Millisecond)
	a.Status = to
	a.DecidedAt = &at
	if to == models.ActionApplied {
		f.effects++
	}
	return true, nil
}

type dispatchCall struct {
	userID  string
	message string
	channel models.Channel
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, userID, message string, channel models.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{userID, message, channel})
	return f.err
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAudit struct {
	mu        sync.Mutex
	proposed  int
	decisions []bool
}

func (f *fakeAudit) RecordProposed(context.Context, *models.ProposedActionBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposed++
	return nil
}

func (f *fakeAudit) RecordDecision(_ context.Context, _ *models.ProposedAction, applied bool, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, applied)
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeInvalidator) Invalidate(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks []string
	users []string
	err   error
}

func (f *fakeTasks) Enqueue(_ context.Context, taskType string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, taskType)
	if p, ok := payload.(UserPayload); ok {
		f.users = append(f.users, p.UserID)
	}
	return nil
}

type memModels struct {
	mu   sync.Mutex
	recs map[string]*models.ModelRecord
}

func newMemModels() *memModels { return &memModels{recs: map[string]*models.ModelRecord{}} }

func (m *memModels) Save(_ context.Context, key, kind string, blob []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := int64(1)
	if prev, ok := m.recs[key]; ok {
		v = prev.Version + 1
	}
	m.recs[key] = &models.ModelRecord{Key: key, Kind: kind, Version: v, Blob: blob, CreatedAt: time.Now()}
	return v, nil
}

func (m *memModels) Load(_ context.Context, key string) (*models.ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return r, nil
}

var errBoom = errors.New("boom")
