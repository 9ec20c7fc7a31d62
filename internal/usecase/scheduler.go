package usecase

import (
	"context"
	"sync"
	"time"

	domrepo "FinGenius/internal/domain/repository"
	applogger "FinGenius/pkg/logger"
)

// ScheduleEntry enqueues Task every Every. Entries with a non-positive
// interval are disabled.
type ScheduleEntry struct {
	Task  string
	Every time.Duration
}

type ScheduleConfig struct {
	AccountRefresh   time.Duration
	DailyAutomations time.Duration
	ModelTraining    time.Duration
	DailySummary     time.Duration
}

// Entries expands the configured intervals. Model training covers the
// categorizer, the forecasters and behavior segmentation.
func (c ScheduleConfig) Entries() []ScheduleEntry {
	return []ScheduleEntry{
		{Task: TaskRefreshAllAccounts, Every: c.AccountRefresh},
		{Task: TaskRunDailyAutomations, Every: c.DailyAutomations},
		{Task: TaskTrainCategorizer, Every: c.ModelTraining},
		{Task: TaskTrainForecasters, Every: c.ModelTraining},
		{Task: TaskAnalyzeBehavior, Every: c.ModelTraining},
		{Task: TaskDailySummary, Every: c.DailySummary},
	}
}

// Scheduler only enqueues; the workers consuming the queue do the work and
// own retries.
type Scheduler struct {
	tasks   domrepo.TaskQueue
	entries []ScheduleEntry
	l       *applogger.Logger
}

func NewScheduler(tasks domrepo.TaskQueue, entries []ScheduleEntry, l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.NewNop()
	}
	active := make([]ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.Every > 0 {
			active = append(active, e)
		}
	}
	return &Scheduler{tasks: tasks, entries: active, l: l}
}

func (s *Scheduler) Entries() []ScheduleEntry { return s.entries }

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		wg.Add(1)
		go func(e ScheduleEntry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	s.l.Info("scheduler started", applogger.Int("entries", len(s.entries)))

	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, e ScheduleEntry) {
	ticker := time.NewTicker(e.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tasks.Enqueue(ctx, e.Task, Empty{}); err != nil {
				s.l.Warn("enqueue scheduled task failed",
					applogger.String("task", e.Task),
					applogger.Error(err))
				continue
			}
			s.l.Debug("scheduled task enqueued", applogger.String("task", e.Task))
		}
	}
}
