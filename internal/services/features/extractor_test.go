package features

import (
	"testing"
	"time"

	"FinGenius/internal/domain/models"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC) }

func TestDailyNetFlowFillsGaps(t *testing.T) {
	txs := []models.Transaction{
		{Date: day(3), Amount: 50, Type: models.Debit},
		{Date: day(1), Amount: 100, Type: models.Credit},
		{Date: day(1), Amount: 30, Type: models.Debit},
		{Date: day(5), Amount: 10, Type: models.Credit},
	}
	got := DailyNetFlow(txs)
	want := []float64{70, 0, -50, 0, 10}
	if !got.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", got.Start)
	}
	if len(got.Values) != len(want) {
		t.Fatalf("len = %d, want %d", len(got.Values), len(want))
	}
	for i := range want {
		if got.Values[i] != want[i] {
			t.Fatalf("values[%d] = %v, want %v", i, got.Values[i], want[i])
		}
	}
	if !got.End().Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", got.End())
	}
	if got.Observed != 3 {
		t.Fatalf("observed = %d, want 3", got.Observed)
	}
}

func TestDailyNetFlowEmpty(t *testing.T) {
	if got := DailyNetFlow(nil); len(got.Values) != 0 {
		t.Fatalf("expected empty series")
	}
}

func TestMeanSpendByCategoryIgnoresCredits(t *testing.T) {
	txs := []models.Transaction{
		{Category: "Groceries", Amount: 150, Type: models.Debit},
		{Category: "Groceries", Amount: 120, Type: models.Debit},
		{Category: "Groceries", Amount: 999, Type: models.Credit},
		{Category: "", Amount: 10, Type: models.Debit},
	}
	got := MeanSpendByCategory(txs)
	if len(got) != 1 || got["Groceries"] != 135 {
		t.Fatalf("unexpected means %v", got)
	}
}

func TestSpendMatrixOrder(t *testing.T) {
	users, cats, rows := SpendMatrix(map[string]map[string]float64{
		"b": {"rent": 1000},
		"a": {"food": 200, "rent": 900},
	})
	if users[0] != "a" || cats[0] != "food" || cats[1] != "rent" {
		t.Fatalf("unexpected order %v %v", users, cats)
	}
	if rows[1][0] != 0 || rows[1][1] != 1000 {
		t.Fatalf("unexpected row %v", rows[1])
	}
}
