package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	"FinGenius/pkg/cache"
	applogger "FinGenius/pkg/logger"
)

// Locker is a cross-process lock.
type Locker = cache.Locker

// SnapshotInvalidator drops cached snapshots after a write.
type SnapshotInvalidator interface {
	Invalidate(userID string)
}

var ErrActionBusy = errors.New("action is being decided by another request")

const (
	lockRetryMin = 25 * time.Millisecond
	lockRetryMax = 400 * time.Millisecond
	lockWaitMax  = 5 * time.Second
)

// ApprovalService applies or rejects proposed actions. Decisions on the same
// action are serialized in-process and, when a Locker is set, across
// processes; the store's conditional update makes the effect run once.
type ApprovalService struct {
	actions     domrepo.ActionStore
	audit       domrepo.AuditLog
	locker      Locker
	invalidator SnapshotInvalidator
	metrics     domrepo.Metrics
	l           *applogger.Logger
	lockTTL     time.Duration
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*actionLock
}

type actionLock struct {
	mu   sync.Mutex
	refs int
}

func NewApprovalService(
	actions domrepo.ActionStore,
	audit domrepo.AuditLog,
	locker Locker,
	invalidator SnapshotInvalidator,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	lockTTL time.Duration,
) *ApprovalService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &ApprovalService{
		actions:     actions,
		audit:       audit,
		locker:      locker,
		invalidator: invalidator,
		metrics:     metrics,
		l:           l.With(applogger.String("component", "approval")),
		lockTTL:     lockTTL,
		now:         time.Now,
		locks:       make(map[string]*actionLock),
	}
}

// ApproveAction applies the action's effect. Approving an action that is no
// longer pending is a no-op reported with Applied=false.
func (s *ApprovalService) ApproveAction(ctx context.Context, userID, actionID string) (*models.ApprovalResult, error) {
	a, err := s.owned(ctx, userID, actionID)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, actionID)
	if err != nil {
		s.metrics.RecordApproval("busy")
		return nil, err
	}
	defer release()

	at := s.now().UTC()
	applied, err := s.actions.ApplyAction(ctx, a, at)
	if err != nil {
		s.metrics.RecordApproval("error")
		return nil, fmt.Errorf("apply action %s: %w", actionID, err)
	}
	return s.decided(ctx, a, applied, models.ActionApplied, at)
}

// RejectAction marks a pending action rejected. Like approval it is a no-op
// once the action has been decided.
func (s *ApprovalService) RejectAction(ctx context.Context, userID, actionID string) (*models.ApprovalResult, error) {
	a, err := s.owned(ctx, userID, actionID)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, actionID)
	if err != nil {
		s.metrics.RecordApproval("busy")
		return nil, err
	}
	defer release()

	at := s.now().UTC()
	rejected, err := s.actions.RejectAction(ctx, actionID, at)
	if err != nil {
		s.metrics.RecordApproval("error")
		return nil, fmt.Errorf("reject action %s: %w", actionID, err)
	}
	return s.decided(ctx, a, rejected, models.ActionRejected, at)
}

func (s *ApprovalService) ListActions(ctx context.Context, userID string, status models.ActionStatus) ([]models.ProposedAction, error) {
	switch status {
	case "", models.ActionPending, models.ActionApplied, models.ActionRejected:
	default:
		return nil, fmt.Errorf("unknown action status %q", status)
	}
	return s.actions.ListActions(ctx, userID, status)
}

func (s *ApprovalService) owned(ctx context.Context, userID, actionID string) (*models.ProposedAction, error) {
	a, err := s.actions.GetAction(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", actionID, err)
	}
	if a.UserID != userID {
		s.metrics.RecordApproval("unauthorized")
		return nil, fmt.Errorf("action %s: %w", actionID, models.ErrUnauthorized)
	}
	return a, nil
}

func (s *ApprovalService) decided(ctx context.Context, a *models.ProposedAction, changed bool, target models.ActionStatus, at time.Time) (*models.ApprovalResult, error) {
	l := s.l.With(applogger.UserID(a.UserID), applogger.ActionID(a.ID))
	res := &models.ApprovalResult{ActionID: a.ID, Applied: changed && target == models.ActionApplied}

	if !changed {
		s.metrics.RecordApproval("noop")
		cur, err := s.actions.GetAction(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("reload action %s: %w", a.ID, err)
		}
		res.Status = cur.Status
		l.Info("action already decided", applogger.String("status", string(cur.Status)))
		return res, nil
	}

	res.Status = target
	a.Status = target
	a.DecidedAt = &at
	s.metrics.RecordApproval(string(target))
	if s.invalidator != nil {
		s.invalidator.Invalidate(a.UserID)
	}
	if err := s.audit.RecordDecision(ctx, a, res.Applied, at); err != nil {
		l.Warn("audit write failed", applogger.Error(err))
	}
	l.Info("action decided", applogger.String("status", string(target)), applogger.String("type", string(a.Type)))
	return res, nil
}

// lock takes the in-process lock for actionID and then the distributed one.
// An unavailable lock backend degrades to in-process locking.
func (s *ApprovalService) lock(ctx context.Context, actionID string) (func(), error) {
	s.mu.Lock()
	al, ok := s.locks[actionID]
	if !ok {
		al = &actionLock{}
		s.locks[actionID] = al
	}
	al.refs++
	s.mu.Unlock()

	al.mu.Lock()
	local := func() {
		al.mu.Unlock()
		s.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(s.locks, actionID)
		}
		s.mu.Unlock()
	}

	if s.locker == nil {
		return local, nil
	}

	key := cache.GenerateKey("lock:action", actionID)
	wait := lockRetryMin
	deadline := time.NewTimer(lockWaitMax)
	defer deadline.Stop()
	for {
		ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			s.l.Warn("distributed lock unavailable", applogger.ActionID(actionID), applogger.Error(err))
			return local, nil
		}
		if ok {
			return func() {
				// detached so a cancelled request still releases the key
				if err := s.locker.Unlock(context.Background(), key); err != nil {
					s.l.Warn("unlock failed", applogger.ActionID(actionID), applogger.Error(err))
				}
				local()
			}, nil
		}

		select {
		case <-ctx.Done():
			local()
			return nil, ctx.Err()
		case <-deadline.C:
			local()
			return nil, fmt.Errorf("%w: %s", ErrActionBusy, actionID)
		case <-time.After(wait):
		}
		if wait *= 2; wait > lockRetryMax {
			wait = lockRetryMax
		}
	}
}
