package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/services/notify"
	"FinGenius/pkg/logger"
	"FinGenius/pkg/metrics"
)

func TestJobsCoverEveryTaskType(t *testing.T) {
	js := &JobSet{}
	seen := map[string]bool{}
	for _, j := range js.Jobs() {
		if seen[j.Type()] {
			t.Errorf("duplicate job for %s", j.Type())
		}
		seen[j.Type()] = true
	}
	for _, tt := range []string{
		TaskSyncUserAccounts, TaskRefreshAllAccounts, TaskRunPipeline, TaskRunDailyAutomations,
		TaskTrainCategorizer, TaskTrainForecasters, TaskAnalyzeBehavior, TaskSendNotification, TaskDailySummary,
	} {
		if !seen[tt] {
			t.Errorf("no job for %s", tt)
		}
	}
}

func jobFor(t *testing.T, js *JobSet, taskType string) func(context.Context, interface{}) error {
	t.Helper()
	for _, j := range js.Jobs() {
		if j.Type() == taskType {
			return j.Handle
		}
	}
	t.Fatalf("no job for %s", taskType)
	return nil
}

func TestUserJobsParsePayload(t *testing.T) {
	f := newPipelineFixture(map[string]*models.FinancialSnapshot{"u1": sampleSnapshot()})
	js := &JobSet{Pipeline: f.p}
	run := jobFor(t, js, TaskRunPipeline)

	// payloads arrive from the queue as decoded JSON maps
	var payload map[string]interface{}
	_ = json.Unmarshal([]byte(`{"user_id":"u1"}`), &payload)
	if err := run(context.Background(), payload); err != nil {
		t.Fatalf("run_pipeline job: %v", err)
	}
	if len(f.actions.batches) != 1 {
		t.Errorf("pipeline not run")
	}

	if err := run(context.Background(), map[string]interface{}{}); !errors.Is(err, errMissingUser) {
		t.Errorf("err = %v, want missing user", err)
	}
}

func TestSendNotificationJob(t *testing.T) {
	d := &fakeDispatcher{}
	js := &JobSet{Summary: NewSummaryService(&fakeUsers{}, &fakeSnapshots{}, newFakeActions(), d, models.ChannelEmail, logger.NewNop())}
	send := jobFor(t, js, TaskSendNotification)

	if err := send(context.Background(), NotificationPayload{UserID: "u1", Message: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if d.count() != 1 || d.calls[0].channel != models.ChannelEmail {
		t.Errorf("calls = %+v", d.calls)
	}
	if err := send(context.Background(), NotificationPayload{UserID: "u1", Message: "hi", Channel: "pigeon"}); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestSendDailySummaries(t *testing.T) {
	users := &fakeUsers{users: []models.User{
		{ID: "u1", DailySummary: true},
		{ID: "u2", DailySummary: false},
		{ID: "ghost", DailySummary: true},
	}}
	snaps := &fakeSnapshots{snaps: map[string]*models.FinancialSnapshot{
		"u1": {UserID: "u1", Income: 3000, Expenses: 1200},
	}}
	actions := newFakeActions()
	actions.add(pendingAction("a1", "u1"))
	d := &fakeDispatcher{}
	svc := NewSummaryService(users, snaps, actions, d, models.ChannelInApp, logger.NewNop())

	sent, err := svc.SendDailySummaries(context.Background())
	if err != nil {
		t.Fatalf("SendDailySummaries: %v", err)
	}
	if sent != 1 || d.count() != 1 {
		t.Fatalf("sent = %d, calls = %d", sent, d.count())
	}
	if want := notify.DailySummaryMessage(3000, 1200, 1); d.calls[0].message != want {
		t.Errorf("message = %q, want %q", d.calls[0].message, want)
	}
}

type fakeDeliverer struct {
	err    error
	events []models.NotificationEvent
}

func (f *fakeDeliverer) Deliver(_ context.Context, ev models.NotificationEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestNotificationHandler(t *testing.T) {
	valid := []byte(`{"id":"e1","user_id":"u1","channel":"email","message":"hello"}`)
	tests := []struct {
		name    string
		body    []byte
		err     error
		wantErr bool
	}{
		{"delivered", valid, nil, false},
		{"bad json", []byte(`{`), nil, true},
		{"missing message", []byte(`{"user_id":"u1"}`), nil, true},
		{"unknown user dropped", valid, models.ErrNotFound, false},
		{"offline user dropped", valid, notify.ErrNotConnected, false},
		{"transient failure retried", valid, errBoom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDeliverer{err: tt.err}
			h := NewNotificationHandler("notifications", d, metrics.Nop{})
			err := h.Handle(context.Background(), tt.body)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
