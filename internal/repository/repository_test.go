package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
)

type capturedPublish struct {
	topic string
	key   []byte
	value interface{}
}

type fakePublisher struct {
	calls []capturedPublish
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.calls = append(f.calls, capturedPublish{topic: topic, key: key, value: value})
	return f.err
}

func TestKafkaDispatcherKeysByUser(t *testing.T) {
	pub := &fakePublisher{}
	d := NewKafkaDispatcher(pub, "fingenius.notifications")
	d.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }

	if err := d.Dispatch(context.Background(), "user-7", "hello", models.ChannelSMS); err != nil {
		t.Fatal(err)
	}
	if len(pub.calls) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.calls))
	}
	call := pub.calls[0]
	if call.topic != "fingenius.notifications" || string(call.key) != "user-7" {
		t.Errorf("unexpected topic/key %s/%s", call.topic, call.key)
	}
	ev, ok := call.value.(models.NotificationEvent)
	if !ok {
		t.Fatalf("value is %T", call.value)
	}
	if ev.ID == "" || ev.Channel != models.ChannelSMS || ev.Message != "hello" || !ev.SentAt.Equal(d.now()) {
		t.Errorf("unexpected event %+v", ev)
	}

	pub.err = errors.New("broker down")
	if err := d.Dispatch(context.Background(), "user-7", "hello", models.ChannelEmail); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestProposedRows(t *testing.T) {
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	b := &models.ProposedActionBatch{
		ID:        "batch-1",
		UserID:    "user-1",
		CreatedAt: created,
		Actions: []models.ProposedAction{
			{ID: "a1", UserID: "user-1", BatchID: "batch-1", Suggestion: models.NewSuggestion(
				models.SuggestionBudgetAdjustment, "cut dining",
				map[string]interface{}{models.ParamCategory: "Dining", models.ParamSuggestedAmount: 180.0},
			)},
			{ID: "a2", UserID: "user-1", BatchID: "batch-1", Suggestion: models.NewSuggestion(
				models.SuggestionSavingsTransfer, "save",
				map[string]interface{}{models.ParamAmount: 300.0},
			)},
		},
	}

	rows := proposedRows(b)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	tests := []struct {
		i          int
		actionType string
		amount     float64
	}{
		{0, "budget_adjustment", 180},
		{1, "savings_transfer", 300},
	}
	for _, tt := range tests {
		r := rows[tt.i]
		if r.event != AuditProposed || r.actionType != tt.actionType || r.amount != tt.amount || !r.ts.Equal(created) {
			t.Errorf("row %d = %+v", tt.i, r)
		}
		var params map[string]interface{}
		if err := json.Unmarshal([]byte(r.parameters), &params); err != nil {
			t.Errorf("row %d parameters not json: %v", tt.i, err)
		}
	}
}

func TestVersionObjectNames(t *testing.T) {
	tests := []struct {
		prefix, key string
		version     int64
		want        string
	}{
		{"models", "categorizer/transactions", 3, "models/categorizer/transactions/v0000000003.json"},
		{"", "cashflow/u1", 12, "cashflow/u1/v0000000012.json"},
	}
	for _, tt := range tests {
		if got := versionObject(tt.prefix, tt.key, tt.version); got != tt.want {
			t.Errorf("versionObject(%q, %q, %d) = %q, want %q", tt.prefix, tt.key, tt.version, got, tt.want)
		}
	}
}
