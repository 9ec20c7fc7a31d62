package advisor

import (
	"encoding/json"
	"errors"
	"testing"

	"FinGenius/internal/domain/models"
)

func trainingSet() []models.LabeledExample {
	return []models.LabeledExample{
		{Description: "STARBUCKS COFFEE", Category: "Coffee"},
		{Description: "BLUE BOTTLE COFFEE", Category: "Coffee"},
		{Description: "WHOLE FOODS MARKET", Category: "Groceries"},
		{Description: "TRADER JOES MARKET", Category: "Groceries"},
		{Description: "AMAZON.COM", Category: "Shopping"},
		{Description: "NYC TRANSIT MTA", Category: "Transportation"},
		{Description: "UBER TRIP", Category: "Transportation"},
		{Description: "UBER TRIP HELP", Category: "Transportation"},
		{Description: "Spotify Premium", Category: "Subscriptions"},
		{Description: "Netflix Subscription", Category: "Subscriptions"},
	}
}

func TestCategorizerTrainValidation(t *testing.T) {
	tests := []struct {
		name     string
		examples []models.LabeledExample
	}{
		{"empty", nil},
		{"single category", []models.LabeledExample{{Description: "A", Category: "x"}, {Description: "B", Category: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCategorizer().Train(tt.examples)
			if !errors.Is(err, models.ErrInsufficientData) {
				t.Fatalf("expected ErrInsufficientData, got %v", err)
			}
		})
	}
}

func TestCategorizerPredictBeforeTrain(t *testing.T) {
	if _, err := NewCategorizer().Predict("coffee"); !errors.Is(err, models.ErrUntrainedModel) {
		t.Fatalf("expected ErrUntrainedModel, got %v", err)
	}
}

func TestCategorizerPredict(t *testing.T) {
	c := NewCategorizer()
	if err := c.Train(trainingSet()); err != nil {
		t.Fatalf("train: %v", err)
	}
	tests := []struct {
		in, want string
	}{
		{"starbucks #1234", "Coffee"},
		{"Uber trip to airport", "Transportation"},
		{"FARMERS MARKET", "Groceries"},
		{"NETFLIX SUBSCRIPTION RENEWAL", "Subscriptions"},
		// nothing in common with the vocabulary: most frequent class
		{"DUNKIN DONUTS", "Transportation"},
		{"", "Transportation"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := c.Predict(tt.in)
			if err != nil {
				t.Fatalf("predict: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategorizerSnapshotRoundTrip(t *testing.T) {
	c := NewCategorizer()
	if err := c.Train(trainingSet()); err != nil {
		t.Fatalf("train: %v", err)
	}
	blob, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored := NewCategorizer()
	if err := restored.Restore(blob); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, ex := range trainingSet() {
		a, _ := c.Predict(ex.Description)
		b, _ := restored.Predict(ex.Description)
		if a != b {
			t.Fatalf("%q: original %q, restored %q", ex.Description, a, b)
		}
	}
}

func TestCategorizerRestoreRejectsPartialRecord(t *testing.T) {
	c := NewCategorizer()
	if err := c.Train(trainingSet()); err != nil {
		t.Fatalf("train: %v", err)
	}
	blob, _ := c.Snapshot()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	delete(raw, "labels")
	partial, _ := json.Marshal(raw)

	fresh := NewCategorizer()
	if err := fresh.Restore(partial); !errors.Is(err, models.ErrCorruptModel) {
		t.Fatalf("expected ErrCorruptModel, got %v", err)
	}
	if fresh.Trained() {
		t.Fatal("a rejected record must not leave a model behind")
	}
	if err := fresh.Restore([]byte("{")); !errors.Is(err, models.ErrCorruptModel) {
		t.Fatalf("expected ErrCorruptModel for bad json, got %v", err)
	}
}
