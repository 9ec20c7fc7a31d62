package usecase

import (
	"context"
	"errors"
	"fmt"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/queue"
)

// Background task types carried on the queue.
const (
	TaskSyncUserAccounts    = "sync_user_accounts"
	TaskRefreshAllAccounts  = "refresh_all_accounts"
	TaskRunPipeline         = "run_pipeline"
	TaskRunDailyAutomations = "run_daily_automations"
	TaskTrainCategorizer    = "train_categorizer"
	TaskTrainForecasters    = "train_forecasters"
	TaskAnalyzeBehavior     = "analyze_behavior"
	TaskSendNotification    = "send_notification"
	TaskDailySummary        = "daily_summary"
)

type UserPayload struct {
	UserID string `json:"user_id"`
}

type NotificationPayload struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message"`
	Channel models.Channel `json:"channel,omitempty"`
}

// Empty is the payload of tasks that take no arguments.
type Empty struct{}

var errMissingUser = errors.New("payload missing user_id")

// JobSet binds task types to the services that run them.
type JobSet struct {
	Accounts *AccountService
	Pipeline *AutomationPipeline
	Batch    *BatchRunner
	Training *TrainingService
	Summary  *SummaryService
}

// Jobs returns one queue job per task type.
func (j *JobSet) Jobs() []queue.Job {
	return []queue.Job{
		userJob(TaskSyncUserAccounts, func(ctx context.Context, id string) error {
			_, err := j.Accounts.SyncUser(ctx, id)
			return err
		}),
		userJob(TaskRunPipeline, func(ctx context.Context, id string) error {
			_, err := j.Pipeline.RunPipeline(ctx, id)
			return err
		}),
		plainJob(TaskRefreshAllAccounts, func(ctx context.Context) error {
			_, err := j.Accounts.RefreshAll(ctx)
			return err
		}),
		plainJob(TaskRunDailyAutomations, func(ctx context.Context) error {
			_, err := j.Batch.RunAll(ctx)
			return err
		}),
		plainJob(TaskTrainCategorizer, func(ctx context.Context) error {
			_, err := j.Training.TrainCategorizer(ctx)
			return err
		}),
		plainJob(TaskTrainForecasters, func(ctx context.Context) error {
			_, _, err := j.Training.TrainAllForecasters(ctx)
			return err
		}),
		plainJob(TaskAnalyzeBehavior, func(ctx context.Context) error {
			_, err := j.Training.AnalyzeBehavior(ctx)
			return err
		}),
		plainJob(TaskDailySummary, func(ctx context.Context) error {
			_, err := j.Summary.SendDailySummaries(ctx)
			return err
		}),
		queue.JobFunc{
			JobName: "notification_sender",
			JobType: TaskSendNotification,
			Fn: func(ctx context.Context, payload interface{}) error {
				p, err := queue.ParsePayload[NotificationPayload](payload)
				if err != nil {
					return err
				}
				if p.UserID == "" {
					return errMissingUser
				}
				return j.Summary.Notify(ctx, p.UserID, p.Message, p.Channel)
			},
		},
	}
}

func userJob(taskType string, fn func(ctx context.Context, userID string) error) queue.Job {
	return queue.JobFunc{
		JobName: taskType + "_job",
		JobType: taskType,
		Fn: func(ctx context.Context, payload interface{}) error {
			p, err := queue.ParsePayload[UserPayload](payload)
			if err != nil {
				return err
			}
			if p.UserID == "" {
				return fmt.Errorf("%s: %w", taskType, errMissingUser)
			}
			return fn(ctx, p.UserID)
		},
	}
}

func plainJob(taskType string, fn func(ctx context.Context) error) queue.Job {
	return queue.JobFunc{
		JobName: taskType + "_job",
		JobType: taskType,
		Fn: func(ctx context.Context, _ interface{}) error {
			return fn(ctx)
		},
	}
}
