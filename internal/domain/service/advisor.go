package service

import (
	"context"

	"FinGenius/internal/domain/models"
)

// BudgetGenerator compares mean spend per category with its limit.
type BudgetGenerator interface {
	Optimize(limits map[string]float64, history []models.Transaction) models.BudgetResult
}

type SavingsGenerator interface {
	Suggest(income, expenses float64, goals []models.Goal) models.SavingsSuggestion
}

type InvestmentGenerator interface {
	RecommendStrategy(risk string) models.Strategy
	Allocation(s models.Strategy) models.Allocation
	Rebalance(risk string, holdings []models.Holding, tolerance float64) models.RebalancePlan
}

// CashFlowForecaster forecasts daily net cash flow per user.
type CashFlowForecaster interface {
	Train(ctx context.Context, userID string, txs []models.Transaction) error
	Load(ctx context.Context, userID string) (bool, error)
	Trained(userID string) bool
	Forecast(userID string, steps int) []models.ForecastPoint
}

// Categorizer persists as one blob so the vocabulary and the classifier
// cannot be saved or loaded apart.
type Categorizer interface {
	Train(examples []models.LabeledExample) error
	Predict(description string) (string, error)
	Trained() bool
	Snapshot() ([]byte, error)
	Restore(blob []byte) error
}

type BehaviorAnalyzer interface {
	Analyze(spend map[string]map[string]float64, k int) (*models.SegmentModel, error)
	Segment(m *models.SegmentModel, spend map[string]float64) (int, error)
}
