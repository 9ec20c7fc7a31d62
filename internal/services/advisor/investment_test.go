package advisor

import (
	"context"
	"testing"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/logger"
)

func TestRecommendStrategy(t *testing.T) {
	a := NewInvestmentAdvisor(logger.NewNop())
	tests := []struct {
		risk string
		want models.Strategy
	}{
		{"low", models.StrategyConservative},
		{"LOW", models.StrategyConservative},
		{"medium", models.StrategyModerate},
		{" High ", models.StrategyAggressive},
		{"", models.StrategyModerate},
		{"yolo", models.StrategyModerate},
	}
	for _, tt := range tests {
		t.Run(tt.risk, func(t *testing.T) {
			if got := a.RecommendStrategy(tt.risk); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAllocationTable(t *testing.T) {
	a := NewInvestmentAdvisor(logger.NewNop())
	tests := []struct {
		strategy models.Strategy
		want     models.Allocation
	}{
		{models.StrategyConservative, models.Allocation{Stocks: 0.30, Bonds: 0.60, Cash: 0.10}},
		{models.StrategyModerate, models.Allocation{Stocks: 0.60, Bonds: 0.30, Cash: 0.10}},
		{models.StrategyAggressive, models.Allocation{Stocks: 0.80, Bonds: 0.15, Cash: 0.05}},
		{models.Strategy("unknown"), models.Allocation{Stocks: 0.60, Bonds: 0.30, Cash: 0.10}},
	}
	for _, tt := range tests {
		got := a.Allocation(tt.strategy)
		if got != tt.want {
			t.Fatalf("%s: got %+v, want %+v", tt.strategy, got, tt.want)
		}
		if sum := got.Stocks + got.Bonds + got.Cash; sum < 0.999 || sum > 1.001 {
			t.Fatalf("%s: weights sum to %v", tt.strategy, sum)
		}
	}
	if a.Allocation(a.RecommendStrategy("high")) != (models.Allocation{Stocks: 0.80, Bonds: 0.15, Cash: 0.05}) {
		t.Fatal("high risk must map to the aggressive allocation")
	}
	if err := a.Train(context.Background(), 10); err != nil {
		t.Fatalf("train must be a no-op: %v", err)
	}
}

func TestRebalance(t *testing.T) {
	a := NewInvestmentAdvisor(logger.NewNop())

	plan := a.Rebalance("high", []models.Holding{
		{AssetClass: models.AssetStocks, Value: 500},
		{AssetClass: models.AssetBonds, Value: 400},
		{AssetClass: models.AssetCash, Value: 100},
	}, 0.05)
	if !plan.Needed || plan.Drift != 0.3 {
		t.Fatalf("expected rebalance with drift 0.3, got %+v", plan)
	}

	plan = a.Rebalance("medium", []models.Holding{
		{AssetClass: models.AssetStocks, Value: 610},
		{AssetClass: models.AssetBonds, Value: 290},
		{AssetClass: models.AssetCash, Value: 100},
	}, 0.05)
	if plan.Needed {
		t.Fatalf("small drift should not need rebalancing: %+v", plan)
	}

	if plan := a.Rebalance("low", nil, 0.05); plan.Needed {
		t.Fatal("no holdings means nothing to rebalance")
	}
}
