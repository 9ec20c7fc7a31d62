package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	applogger "FinGenius/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type PipelineRunner interface {
	RunPipeline(ctx context.Context, userID string) (*models.PipelineResult, error)
}

// BatchReport summarizes one run over all users.
type BatchReport struct {
	Users     int               `json:"users"`
	Proposed  int               `json:"proposed"`
	NoActions int               `json:"no_actions"`
	Failed    map[string]string `json:"failed,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// BatchRunner runs the pipeline for every user with bounded concurrency.
type BatchRunner struct {
	users       domrepo.SnapshotReader
	pipeline    PipelineRunner
	concurrency int
	l           *applogger.Logger
}

func NewBatchRunner(users domrepo.SnapshotReader, pipeline PipelineRunner, concurrency int, l *applogger.Logger) *BatchRunner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BatchRunner{
		users:       users,
		pipeline:    pipeline,
		concurrency: concurrency,
		l:           l.With(applogger.String("component", "batch_runner")),
	}
}

// RunAll runs the pipeline for each user. A user's failure is recorded in
// the report and never stops the others; only listing users can fail.
func (b *BatchRunner) RunAll(ctx context.Context) (*BatchReport, error) {
	start := time.Now()
	ids, err := b.users.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rep := &BatchReport{Users: len(ids), Failed: map[string]string{}}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				rep.Failed[id] = ctx.Err().Error()
				mu.Unlock()
				return nil
			}
			res, err := b.pipeline.RunPipeline(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.Failed[id] = err.Error()
				b.l.Error("pipeline failed", applogger.UserID(id), applogger.Error(err))
			case res.Status == models.StatusActionsProposed:
				rep.Proposed++
			default:
				rep.NoActions++
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = time.Since(start)
	b.l.Info("daily automations finished",
		applogger.Int("users", rep.Users),
		applogger.Int("proposed", rep.Proposed),
		applogger.Int("no_actions", rep.NoActions),
		applogger.Int("failed", len(rep.Failed)),
		applogger.Duration("duration_ms", rep.Duration),
	)
	return rep, nil
}
