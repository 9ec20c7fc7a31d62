package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/internal/services/notify"
	pkgkafka "FinGenius/pkg/kafka"
	applogger "FinGenius/pkg/logger"
	"FinGenius/pkg/util"

	"github.com/google/uuid"
)

// Generator names, also used as metric labels and error-map keys.
const (
	GenBudget     = "budget"
	GenSavings    = "savings"
	GenInvestment = "investment"
	GenCashFlow   = "cash_flow"
)

type PipelineConfig struct {
	GeneratorTimeout   time.Duration
	ForecastEnabled    bool
	ForecastSteps      int
	RebalanceTolerance float64
	Channel            models.Channel
}

// AutomationPipeline turns one user's snapshot into a batch of proposed
// actions awaiting approval.
type AutomationPipeline struct {
	snapshots  domrepo.SnapshotReader
	actions    domrepo.ActionStore
	dispatcher domrepo.Dispatcher
	audit      domrepo.AuditLog
	budget     domsvc.BudgetGenerator
	savings    domsvc.SavingsGenerator
	investment domsvc.InvestmentGenerator
	forecaster domsvc.CashFlowForecaster
	metrics    domrepo.Metrics
	l          *applogger.Logger
	cfg        PipelineConfig
	now        func() time.Time
	newID      func() string
}

func NewAutomationPipeline(
	snapshots domrepo.SnapshotReader,
	actions domrepo.ActionStore,
	dispatcher domrepo.Dispatcher,
	audit domrepo.AuditLog,
	budget domsvc.BudgetGenerator,
	savings domsvc.SavingsGenerator,
	investment domsvc.InvestmentGenerator,
	forecaster domsvc.CashFlowForecaster,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg PipelineConfig,
) *AutomationPipeline {
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 10 * time.Second
	}
	if cfg.ForecastSteps <= 0 {
		cfg.ForecastSteps = 30
	}
	if cfg.Channel == "" {
		cfg.Channel = models.ChannelEmail
	}
	return &AutomationPipeline{
		snapshots:  snapshots,
		actions:    actions,
		dispatcher: dispatcher,
		audit:      audit,
		budget:     budget,
		savings:    savings,
		investment: investment,
		forecaster: forecaster,
		metrics:    metrics,
		l:          l.With(applogger.String("component", "pipeline")),
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

type generatorResult struct {
	name        string
	suggestions []models.Suggestion
	err         error
}

// RunPipeline runs every generator for userID, persists the non-trivial
// suggestions as one batch and notifies the user. A failing generator is
// reported in the result's Errors and does not abort the run; an empty batch
// is neither persisted nor notified.
func (p *AutomationPipeline) RunPipeline(ctx context.Context, userID string) (*models.PipelineResult, error) {
	start := time.Now()
	l := p.l.With(applogger.UserID(userID))

	snap, err := p.snapshots.Snapshot(ctx, userID)
	if err != nil {
		p.metrics.RecordPipelineRun("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("load snapshot for %s: %w", userID, err)
	}

	byName, errs := p.runGenerators(ctx, snap)

	// fixed order regardless of completion order
	suggestions := make([]models.Suggestion, 0, 8)
	for _, name := range []string{GenBudget, GenSavings, GenInvestment, GenCashFlow} {
		suggestions = append(suggestions, byName[name]...)
	}

	res := &models.PipelineResult{
		UserID:          userID,
		ProposedActions: suggestions,
		CreatedAt:       p.now().UTC(),
	}
	if len(errs) > 0 {
		res.Errors = errs
		for name, msg := range errs {
			l.Warn("generator failed", applogger.String("generator", name), applogger.String("error", msg))
		}
	}

	if len(suggestions) == 0 {
		res.Status = models.StatusNoActionsProposed
		p.metrics.RecordPipelineRun(string(res.Status), time.Since(start).Seconds())
		l.Info("no actions proposed")
		return res, nil
	}

	batch := p.newBatch(userID, suggestions, res.CreatedAt)
	if err := p.actions.SaveBatch(ctx, batch); err != nil {
		p.metrics.RecordPipelineRun("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("save batch: %w", err)
	}
	res.BatchID = batch.ID
	res.Status = models.StatusActionsProposed
	res.ActionIDs = make([]string, len(batch.Actions))
	for i, a := range batch.Actions {
		res.ActionIDs[i] = a.ID
	}

	if err := p.audit.RecordProposed(ctx, batch); err != nil {
		l.Warn("audit write failed", applogger.String("batch_id", batch.ID), applogger.Error(err))
	}

	nctx := pkgkafka.WithTraceID(ctx, batch.ID)
	if err := p.dispatcher.Dispatch(nctx, userID, notify.PendingApprovalMessage(len(suggestions)), p.cfg.Channel); err != nil {
		p.metrics.RecordError("notification_dispatch")
		l.Error("notification dispatch failed", applogger.String("batch_id", batch.ID), applogger.Error(err))
	}

	p.metrics.RecordPipelineRun(string(res.Status), time.Since(start).Seconds())
	l.Info("actions proposed",
		applogger.String("batch_id", batch.ID),
		applogger.Int("actions", len(suggestions)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

func (p *AutomationPipeline) runGenerators(ctx context.Context, snap *models.FinancialSnapshot) (map[string][]models.Suggestion, map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.GeneratorTimeout)
	defer cancel()

	gens := map[string]func(context.Context, *models.FinancialSnapshot) ([]models.Suggestion, error){
		GenBudget:     p.budgetSuggestions,
		GenSavings:    p.savingsSuggestions,
		GenInvestment: p.investmentSuggestions,
	}
	if p.cfg.ForecastEnabled && p.forecaster != nil {
		gens[GenCashFlow] = p.cashFlowSuggestions
	}

	// buffered so late generators never block after a timeout
	ch := make(chan generatorResult, len(gens))
	for name, fn := range gens {
		go func(name string, fn func(context.Context, *models.FinancialSnapshot) ([]models.Suggestion, error)) {
			start := time.Now()
			var r generatorResult
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						r = generatorResult{name: name, err: fmt.Errorf("generator panic: %v", rec)}
					}
				}()
				s, err := fn(ctx, snap)
				r = generatorResult{name: name, suggestions: s, err: err}
			}()
			p.metrics.RecordGenerator(name, time.Since(start).Seconds(), r.err)
			ch <- r
		}(name, fn)
	}

	out := make(map[string][]models.Suggestion, len(gens))
	errs := map[string]string{}
	for pending := len(gens); pending > 0; pending-- {
		select {
		case r := <-ch:
			delete(gens, r.name)
			if r.err != nil {
				errs[r.name] = r.err.Error()
				continue
			}
			out[r.name] = r.suggestions
		case <-ctx.Done():
			for name := range gens {
				errs[name] = ctx.Err().Error()
			}
			return out, errs
		}
	}
	return out, errs
}

func (p *AutomationPipeline) budgetSuggestions(_ context.Context, snap *models.FinancialSnapshot) ([]models.Suggestion, error) {
	res := p.budget.Optimize(snap.BudgetLimits(), snap.Transactions)
	if res.Kind == models.BudgetNoHistory {
		p.l.Debug("budget generator: "+res.Notice, applogger.UserID(snap.UserID))
		return nil, nil
	}

	categories := make([]string, 0, len(res.Suggestions))
	for c := range res.Suggestions {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]models.Suggestion, 0, len(categories))
	for _, c := range categories {
		cs := res.Suggestions[c]
		if cs.Action == models.BudgetNoChange {
			continue
		}
		amount := util.ClampNonNegative(cs.SuggestedAmount)
		verb := "Decrease"
		if cs.Action == models.BudgetIncrease {
			verb = "Increase"
		}
		out = append(out, models.NewSuggestion(models.SuggestionBudgetAdjustment,
			fmt.Sprintf("%s your %s budget from %.2f to %.2f. %s", verb, c, cs.Limit, amount, cs.Reason),
			map[string]interface{}{
				models.ParamCategory:        c,
				models.ParamAction:          string(cs.Action),
				models.ParamCurrentLimit:    cs.Limit,
				models.ParamSuggestedAmount: amount,
				models.ParamMeanSpend:       util.Round2(cs.MeanSpend),
			}))
	}
	return out, nil
}

func (p *AutomationPipeline) savingsSuggestions(_ context.Context, snap *models.FinancialSnapshot) ([]models.Suggestion, error) {
	s := p.savings.Suggest(snap.Income, snap.Expenses, snap.Goals)
	amount := util.ClampNonNegative(s.SuggestedAmount)
	if amount == 0 {
		return nil, nil
	}
	return []models.Suggestion{models.NewSuggestion(models.SuggestionSavingsTransfer,
		fmt.Sprintf("Transfer %.2f to savings, 20%% of your disposable income of %.2f.", amount, s.Disposable),
		map[string]interface{}{
			models.ParamAmount:     amount,
			models.ParamDisposable: s.Disposable,
		})}, nil
}

func (p *AutomationPipeline) investmentSuggestions(_ context.Context, snap *models.FinancialSnapshot) ([]models.Suggestion, error) {
	if len(snap.Holdings) == 0 {
		return nil, nil
	}
	plan := p.investment.Rebalance(snap.RiskTolerance, snap.Holdings, p.cfg.RebalanceTolerance)
	if !plan.Needed {
		return nil, nil
	}
	t := plan.Target
	return []models.Suggestion{models.NewSuggestion(models.SuggestionInvestmentRebalance,
		fmt.Sprintf("Rebalance to a %s allocation: %.0f%% stocks, %.0f%% bonds, %.0f%% cash (current drift %.0f%%).",
			plan.Strategy, t.Stocks*100, t.Bonds*100, t.Cash*100, plan.Drift*100),
		map[string]interface{}{
			models.ParamStrategy: string(plan.Strategy),
			models.AssetStocks:   t.Stocks,
			models.AssetBonds:    t.Bonds,
			models.AssetCash:     t.Cash,
			models.ParamDrift:    plan.Drift,
		})}, nil
}

func (p *AutomationPipeline) cashFlowSuggestions(ctx context.Context, snap *models.FinancialSnapshot) ([]models.Suggestion, error) {
	if !p.forecaster.Trained(snap.UserID) {
		ok, err := p.forecaster.Load(ctx, snap.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	points := p.forecaster.Forecast(snap.UserID, p.cfg.ForecastSteps)
	if len(points) == 0 {
		return nil, nil
	}
	total := 0.0
	for _, pt := range points {
		total += pt.NetCashFlow
	}
	total = util.Round2(total)
	return []models.Suggestion{models.NewSuggestion(models.SuggestionCashFlowForecast,
		fmt.Sprintf("Projected net cash flow over the next %d days: %.2f.", len(points), total),
		map[string]interface{}{
			models.ParamSteps:    len(points),
			models.ParamNetTotal: total,
			models.ParamForecast: points,
		})}, nil
}

func (p *AutomationPipeline) newBatch(userID string, suggestions []models.Suggestion, at time.Time) *models.ProposedActionBatch {
	b := &models.ProposedActionBatch{
		ID:        p.newID(),
		UserID:    userID,
		CreatedAt: at,
		Actions:   make([]models.ProposedAction, len(suggestions)),
	}
	for i, s := range suggestions {
		b.Actions[i] = models.ProposedAction{
			ID:         p.newID(),
			UserID:     userID,
			BatchID:    b.ID,
			Position:   i,
			Suggestion: s,
			Status:     models.ActionPending,
			CreatedAt:  at,
		}
	}
	return b
}
