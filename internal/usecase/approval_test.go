package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/cache"
	"FinGenius/pkg/logger"
	"FinGenius/pkg/metrics"
)

func pendingAction(id, userID string) models.ProposedAction {
	return models.ProposedAction{
		ID:     id,
		UserID: userID,
		Suggestion: models.NewSuggestion(models.SuggestionSavingsTransfer, "save",
			map[string]interface{}{models.ParamAmount: 100.0}),
		Status:    models.ActionPending,
		CreatedAt: time.Now(),
	}
}

func newApproval(actions *fakeActions, locker Locker) (*ApprovalService, *fakeAudit, *fakeInvalidator) {
	audit := &fakeAudit{}
	inv := &fakeInvalidator{}
	return NewApprovalService(actions, audit, locker, inv, metrics.Nop{}, logger.NewNop(), time.Second), audit, inv
}

func TestApproveActionIsIdempotent(t *testing.T) {
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	svc, audit, inv := newApproval(actions, nil)
	ctx := context.Background()

	first, err := svc.ApproveAction(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if !first.Applied || first.Status != models.ActionApplied {
		t.Errorf("first = %+v", first)
	}

	second, err := svc.ApproveAction(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if second.Applied || second.Status != models.ActionApplied {
		t.Errorf("second = %+v", second)
	}
	if actions.effects != 1 {
		t.Errorf("effects = %d, want 1", actions.effects)
	}
	if len(audit.decisions) != 1 {
		t.Errorf("audit decisions = %d", len(audit.decisions))
	}
	if len(inv.users) != 1 || inv.users[0] != "u1" {
		t.Errorf("invalidations = %v", inv.users)
	}
}

func TestApproveActionConcurrent(t *testing.T) {
	tests := []struct {
		name   string
		locker Locker
	}{
		{"in-process", nil},
		{"with lock backend", cache.NewMemoryLocker(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := newFakeActions()
			actions.add(pendingAction("a1", "u1"))
			svc, _, _ := newApproval(actions, tt.locker)

			const n = 16
			var wg sync.WaitGroup
			var mu sync.Mutex
			applied := 0
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := svc.ApproveAction(context.Background(), "u1", "a1")
					if err != nil {
						t.Errorf("approve: %v", err)
						return
					}
					if res.Applied {
						mu.Lock()
						applied++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			if applied != 1 || actions.effects != 1 {
				t.Errorf("applied = %d, effects = %d, want exactly one", applied, actions.effects)
			}
			if len(svc.locks) != 0 {
				t.Errorf("lock table not cleaned: %d entries", len(svc.locks))
			}
		})
	}
}

func TestApproveActionErrors(t *testing.T) {
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	svc, _, _ := newApproval(actions, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		user   string
		action string
		want   error
	}{
		{"unknown action", "u1", "nope", models.ErrNotFound},
		{"other user", "u2", "a1", models.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApproveAction(ctx, tt.user, tt.action)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if actions.effects != 0 {
		t.Errorf("effects applied on error paths")
	}
}

func TestRejectThenApproveIsNoop(t *testing.T) {
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	svc, _, _ := newApproval(actions, nil)
	ctx := context.Background()

	rej, err := svc.RejectAction(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rej.Status != models.ActionRejected || rej.Applied {
		t.Errorf("reject = %+v", rej)
	}

	res, err := svc.ApproveAction(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Applied || res.Status != models.ActionRejected {
		t.Errorf("approve after reject = %+v", res)
	}
	if actions.effects != 0 {
		t.Errorf("rejected action applied")
	}
}

type busyLocker struct{}

func (busyLocker) TryLock(context.Context, string, time.Duration) (bool, error) { return false, nil }
func (busyLocker) Unlock(context.Context, string) error                         { return nil }

func TestApproveActionLockTimeout(t *testing.T) {
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	svc, _, _ := newApproval(actions, busyLocker{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := svc.ApproveAction(ctx, "u1", "a1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if actions.effects != 0 {
		t.Errorf("applied without the lock")
	}
}

type brokenLocker struct{}

func (brokenLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenLocker) Unlock(context.Context, string) error { return nil }

func TestApprovalLogsComponentOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	lg, err := logger.New(&logger.Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatal(err)
	}
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	svc := NewApprovalService(actions, &fakeAudit{}, brokenLocker{}, &fakeInvalidator{}, metrics.Nop{}, lg, time.Second)

	// a failing lock backend falls back to the in-process lock and warns
	res, err := svc.ApproveAction(context.Background(), "u1", "a1")
	if err != nil || !res.Applied {
		t.Fatalf("approve = %+v, %v", res, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var warned bool
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if !strings.Contains(line, "distributed lock unavailable") {
			continue
		}
		warned = true
		if n := strings.Count(line, `"component":"approval"`); n != 1 {
			t.Errorf("component field written %d times: %s", n, line)
		}
	}
	if !warned {
		t.Fatalf("no lock warning in %q", raw)
	}
}

func TestListActionsValidatesStatus(t *testing.T) {
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	actions.add(pendingAction("a2", "u2"))
	svc, _, _ := newApproval(actions, nil)

	got, err := svc.ListActions(context.Background(), "u1", models.ActionPending)
	if err != nil || len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("ListActions = %+v, %v", got, err)
	}
	if _, err := svc.ListActions(context.Background(), "u1", "bogus"); err == nil {
		t.Error("expected error for unknown status")
	}
}
