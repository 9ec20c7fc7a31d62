package advisor

import (
	"testing"
	"time"

	"FinGenius/internal/domain/models"
)

func spend(category string, amounts ...float64) []models.Transaction {
	out := make([]models.Transaction, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, models.Transaction{
			Category: category,
			Amount:   a,
			Type:     models.Debit,
			Date:     time.Date(2023, 11, i+1, 0, 0, 0, 0, time.UTC),
		})
	}
	return out
}

func TestBudgetOptimizerThresholds(t *testing.T) {
	history := append(spend("Groceries", 150, 120), spend("Transport", 50)...)
	history = append(history, spend("Shopping", 80)...)
	history = append(history, spend("Dining", 100)...)

	limits := map[string]float64{
		"Groceries": 100, // mean 135 > 110
		"Transport": 70,  // mean 50 < 56
		"Shopping":  50,  // mean 80 > 55
		"Dining":    100, // mean 100 within [80, 110]
	}

	res := NewBudgetOptimizer().Optimize(limits, history)
	if res.Kind != models.BudgetSuggestions {
		t.Fatalf("expected suggestions, got kind %v", res.Kind)
	}

	tests := []struct {
		category string
		action   models.BudgetAction
		amount   float64
	}{
		{"Groceries", models.BudgetDecrease, 121.5},
		{"Transport", models.BudgetIncrease, 55},
		{"Shopping", models.BudgetDecrease, 72},
		{"Dining", models.BudgetNoChange, 0},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			got := res.Suggestions[tt.category]
			if got.Action != tt.action {
				t.Fatalf("action = %s, want %s", got.Action, tt.action)
			}
			if got.SuggestedAmount != tt.amount {
				t.Fatalf("amount = %v, want %v", got.SuggestedAmount, tt.amount)
			}
		})
	}
}

func TestBudgetOptimizerBoundaries(t *testing.T) {
	// Exactly at 110% and 80% of the limit is within healthy limits.
	res := NewBudgetOptimizer().Optimize(
		map[string]float64{"A": 100, "B": 100},
		append(spend("A", 110), spend("B", 80)...),
	)
	for _, c := range []string{"A", "B"} {
		if res.Suggestions[c].Action != models.BudgetNoChange {
			t.Fatalf("%s: expected no_change, got %s", c, res.Suggestions[c].Action)
		}
	}
}

func TestBudgetOptimizerNoHistory(t *testing.T) {
	limits := map[string]float64{"Groceries": 100}
	res := NewBudgetOptimizer().Optimize(limits, spend("Travel", 500))
	if res.Kind != models.BudgetNoHistory {
		t.Fatalf("expected no history result")
	}
	if res.Notice != NoHistoryNotice || res.Budget["Groceries"] != 100 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Suggestions != nil {
		t.Fatalf("no-history result must not carry suggestions")
	}

	limits["Groceries"] = 1
	if res.Budget["Groceries"] != 100 {
		t.Fatalf("returned budget must be a copy")
	}
}

func TestBudgetOptimizerUncoveredCategoryIncreases(t *testing.T) {
	res := NewBudgetOptimizer().Optimize(
		map[string]float64{"Groceries": 100, "Pets": 40},
		spend("Groceries", 200),
	)
	pets, ok := res.Suggestions["Pets"]
	if !ok {
		t.Fatalf("missing suggestion for Pets: %+v", res.Suggestions)
	}
	if pets.Action != models.BudgetIncrease {
		t.Fatalf("action = %s, want %s", pets.Action, models.BudgetIncrease)
	}
	if pets.SuggestedAmount != 0 || pets.MeanSpend != 0 {
		t.Fatalf("unexpected amounts %+v", pets)
	}
}
