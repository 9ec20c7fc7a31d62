package usecase

import (
	"context"
	"fmt"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	"FinGenius/internal/services/notify"
	applogger "FinGenius/pkg/logger"
)

// SummaryService sends the daily digest to users who opted in.
type SummaryService struct {
	users      domrepo.UserStore
	snapshots  domrepo.SnapshotReader
	actions    domrepo.ActionStore
	dispatcher domrepo.Dispatcher
	channel    models.Channel
	l          *applogger.Logger
}

func NewSummaryService(
	users domrepo.UserStore,
	snapshots domrepo.SnapshotReader,
	actions domrepo.ActionStore,
	dispatcher domrepo.Dispatcher,
	channel models.Channel,
	l *applogger.Logger,
) *SummaryService {
	return &SummaryService{
		users:      users,
		snapshots:  snapshots,
		actions:    actions,
		dispatcher: dispatcher,
		channel:    channel,
		l:          l.With(applogger.String("component", "daily_summary")),
	}
}

// SendDailySummaries returns how many digests were dispatched. A failure for
// one user is logged and skipped.
func (s *SummaryService) SendDailySummaries(ctx context.Context) (int, error) {
	us, err := s.users.DailySummaryUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("daily summary users: %w", err)
	}
	sent := 0
	for _, u := range us {
		if err := s.sendOne(ctx, u.ID); err != nil {
			s.l.Error("daily summary failed", applogger.UserID(u.ID), applogger.Error(err))
			continue
		}
		sent++
	}
	s.l.Info("daily summaries sent", applogger.Int("users", len(us)), applogger.Int("sent", sent))
	return sent, nil
}

func (s *SummaryService) sendOne(ctx context.Context, userID string) error {
	snap, err := s.snapshots.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	pending, err := s.actions.ListActions(ctx, userID, models.ActionPending)
	if err != nil {
		return err
	}
	msg := notify.DailySummaryMessage(snap.Income, snap.Expenses, len(pending))
	return s.dispatcher.Dispatch(ctx, userID, msg, s.channel)
}

// Notify sends a free-form message; used by the send_notification task.
func (s *SummaryService) Notify(ctx context.Context, userID, message string, channel models.Channel) error {
	if channel == "" {
		channel = s.channel
	}
	if !channel.Valid() {
		return fmt.Errorf("unknown channel %q", channel)
	}
	return s.dispatcher.Dispatch(ctx, userID, message, channel)
}
