package models

import "time"

// BudgetAction is the per-category outcome of budget optimization.
type BudgetAction string

const (
	BudgetDecrease BudgetAction = "decrease_suggestion"
	BudgetIncrease BudgetAction = "increase_suggestion"
	BudgetNoChange BudgetAction = "no_change"
)

type CategorySuggestion struct {
	Category        string
	Action          BudgetAction
	SuggestedAmount float64
	MeanSpend       float64
	Limit           float64
	Reason          string
}

type BudgetResultKind int

const (
	// BudgetNoHistory carries the original budget untouched.
	BudgetNoHistory BudgetResultKind = iota
	// BudgetSuggestions carries one suggestion per budgeted category.
	BudgetSuggestions
)

// BudgetResult is a tagged union; check Kind before reading fields.
type BudgetResult struct {
	Kind        BudgetResultKind
	Notice      string
	Budget      map[string]float64
	Suggestions map[string]CategorySuggestion
}

type SavingsSuggestion struct {
	Disposable      float64
	SuggestedAmount float64
}

type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyModerate     Strategy = "moderate"
	StrategyAggressive   Strategy = "aggressive"
)

// Allocation is a target weight per asset class; weights sum to 1.
type Allocation struct {
	Stocks float64 `json:"stocks"`
	Bonds  float64 `json:"bonds"`
	Cash   float64 `json:"cash"`
}

func (a Allocation) Map() map[string]float64 {
	return map[string]float64{AssetStocks: a.Stocks, AssetBonds: a.Bonds, AssetCash: a.Cash}
}

type RebalancePlan struct {
	Strategy Strategy
	Target   Allocation
	Current  Allocation
	Drift    float64
	Needed   bool
}

type ForecastPoint struct {
	Date        time.Time `json:"date"`
	NetCashFlow float64   `json:"net_cash_flow"`
}

type LabeledExample struct {
	Description string
	Category    string
}

// ModelRecord is one versioned, self-contained persisted model.
type ModelRecord struct {
	Key       string
	Kind      string
	Version   int64
	Blob      []byte
	CreatedAt time.Time
}

// SegmentModel is a fitted spending-behavior clustering.
type SegmentModel struct {
	Categories []string             `json:"categories"`
	Means      []float64            `json:"means"`
	Scales     []float64            `json:"scales"`
	Centroids  [][]float64          `json:"centroids"`
	Summary    []map[string]float64 `json:"summary"`
	Members    map[string]int       `json:"members"`
}
