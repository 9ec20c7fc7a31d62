package advisor

import (
	"FinGenius/internal/domain/models"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/internal/services/features"
	"FinGenius/pkg/util"
)

const (
	overspendRatio  = 1.10
	underspendRatio = 0.80
	decreaseFactor  = 0.90
	increaseFactor  = 1.10

	NoHistoryNotice = "no spending history"
)

// BudgetOptimizer suggests budget limits from historical mean spend.
type BudgetOptimizer struct{}

func NewBudgetOptimizer() *BudgetOptimizer { return &BudgetOptimizer{} }

// Optimize returns BudgetNoHistory when none of the budgeted categories has
// spending history; otherwise one suggestion per budgeted category.
func (o *BudgetOptimizer) Optimize(limits map[string]float64, history []models.Transaction) models.BudgetResult {
	means := features.MeanSpendByCategory(history)

	covered := false
	for c := range limits {
		if _, ok := means[c]; ok {
			covered = true
			break
		}
	}
	if !covered {
		budget := make(map[string]float64, len(limits))
		for c, l := range limits {
			budget[c] = l
		}
		return models.BudgetResult{Kind: models.BudgetNoHistory, Notice: NoHistoryNotice, Budget: budget}
	}

	out := make(map[string]models.CategorySuggestion, len(limits))
	for c, limit := range limits {
		// A category nobody spent in has a mean of zero.
		out[c] = suggestForCategory(c, means[c], limit)
	}
	return models.BudgetResult{Kind: models.BudgetSuggestions, Suggestions: out}
}

func suggestForCategory(category string, mean, limit float64) models.CategorySuggestion {
	s := models.CategorySuggestion{Category: category, MeanSpend: mean, Limit: limit}
	switch {
	case mean > limit*overspendRatio:
		s.Action = models.BudgetDecrease
		s.SuggestedAmount = util.Percent(mean, decreaseFactor)
		s.Reason = "Consistently overspending in this category."
	case mean < limit*underspendRatio:
		s.Action = models.BudgetIncrease
		s.SuggestedAmount = util.Percent(mean, increaseFactor)
		s.Reason = "Consistently underspending; consider reallocating funds."
	default:
		s.Action = models.BudgetNoChange
		s.Reason = "Spending within healthy limits."
	}
	return s
}

var _ domsvc.BudgetGenerator = (*BudgetOptimizer)(nil)
