package advisor

import (
	"FinGenius/internal/domain/models"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/pkg/util"
)

const savingsRate = 0.20

// SavingsStrategist suggests a contribution from disposable income.
type SavingsStrategist struct{}

func NewSavingsStrategist() *SavingsStrategist { return &SavingsStrategist{} }

// Suggest ignores goals for now: capping at the nearest goal's remaining
// amount is not defined yet.
func (s *SavingsStrategist) Suggest(income, expenses float64, _ []models.Goal) models.SavingsSuggestion {
	disposable := income - expenses
	amount := 0.0
	if disposable > 0 {
		amount = util.Percent(disposable, savingsRate)
	}
	return models.SavingsSuggestion{
		Disposable:      util.Round2(disposable),
		SuggestedAmount: util.ClampNonNegative(amount),
	}
}

var _ domsvc.SavingsGenerator = (*SavingsStrategist)(nil)
