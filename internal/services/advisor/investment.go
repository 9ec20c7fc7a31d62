package advisor

import (
	"context"
	"math"

	"FinGenius/internal/domain/models"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/pkg/logger"
	"FinGenius/pkg/util"
)

var allocations = map[models.Strategy]models.Allocation{
	models.StrategyConservative: {Stocks: 0.30, Bonds: 0.60, Cash: 0.10},
	models.StrategyModerate:     {Stocks: 0.60, Bonds: 0.30, Cash: 0.10},
	models.StrategyAggressive:   {Stocks: 0.80, Bonds: 0.15, Cash: 0.05},
}

// InvestmentAdvisor maps a risk label to a strategy and a fixed allocation.
type InvestmentAdvisor struct {
	logger *logger.Logger
}

func NewInvestmentAdvisor(lg *logger.Logger) *InvestmentAdvisor {
	return &InvestmentAdvisor{logger: lg}
}

// RecommendStrategy is case-insensitive; unknown or empty labels give moderate.
func (a *InvestmentAdvisor) RecommendStrategy(risk string) models.Strategy {
	switch util.NormalizeLabel(risk) {
	case "low":
		return models.StrategyConservative
	case "high":
		return models.StrategyAggressive
	default:
		return models.StrategyModerate
	}
}

func (a *InvestmentAdvisor) Allocation(s models.Strategy) models.Allocation {
	if alloc, ok := allocations[s]; ok {
		return alloc
	}
	return allocations[models.StrategyModerate]
}

// Train is a placeholder; the strategy is a lookup, not a learned model.
func (a *InvestmentAdvisor) Train(_ context.Context, profiles int) error {
	a.logger.Debug("investment strategy training skipped", logger.Int("profiles", profiles))
	return nil
}

// Rebalance compares current holdings with the target allocation. Drift is the
// largest absolute weight difference across asset classes.
func (a *InvestmentAdvisor) Rebalance(risk string, holdings []models.Holding, tolerance float64) models.RebalancePlan {
	strategy := a.RecommendStrategy(risk)
	plan := models.RebalancePlan{Strategy: strategy, Target: a.Allocation(strategy)}

	total := 0.0
	byClass := map[string]float64{}
	for _, h := range holdings {
		if h.Value <= 0 {
			continue
		}
		byClass[h.AssetClass] += h.Value
		total += h.Value
	}
	if total == 0 {
		return plan
	}

	plan.Current = models.Allocation{
		Stocks: util.Round2(byClass[models.AssetStocks] / total),
		Bonds:  util.Round2(byClass[models.AssetBonds] / total),
		Cash:   util.Round2(byClass[models.AssetCash] / total),
	}
	plan.Drift = util.Round2(math.Max(
		math.Abs(plan.Current.Stocks-plan.Target.Stocks),
		math.Max(math.Abs(plan.Current.Bonds-plan.Target.Bonds), math.Abs(plan.Current.Cash-plan.Target.Cash)),
	))
	plan.Needed = plan.Drift > tolerance
	return plan
}

var _ domsvc.InvestmentGenerator = (*InvestmentAdvisor)(nil)
