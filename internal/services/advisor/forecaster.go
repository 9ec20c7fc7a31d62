package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/internal/services/features"
	"FinGenius/pkg/logger"
	"FinGenius/pkg/util"
)

const (
	// MinCashFlowObservations is the number of days with transactions
	// needed to fit. Gap-filled zero days do not count.
	MinCashFlowObservations = 20

	CashFlowKind = "arima-5-1-0"

	arOrder = 5
	ridge   = 1e-6
)

// CashFlowModelKey is the model store key for a user's forecaster.
func CashFlowModelKey(userID string) string { return "cashflow/" + userID }

// cashFlowModel is ARIMA(p,1,0) without a constant: an AR(p) fit on the
// first difference of the daily series.
type cashFlowModel struct {
	Phi       []float64 `json:"phi"`
	LastLevel float64   `json:"last_level"`
	LastDiffs []float64 `json:"last_diffs"` // most recent last
	LastDate  time.Time `json:"last_date"`
	Points    int       `json:"points"`
}

// CashFlowForecaster keeps one fitted model per user in memory and mirrors
// it to the model store when one is configured.
type CashFlowForecaster struct {
	logger *logger.Logger
	store  repository.ModelStore

	mu     sync.RWMutex
	models map[string]*cashFlowModel
}

func NewCashFlowForecaster(lg *logger.Logger, store repository.ModelStore) *CashFlowForecaster {
	return &CashFlowForecaster{logger: lg, store: store, models: make(map[string]*cashFlowModel)}
}

// Train fits the user's model. Too few observations is logged and skipped
// without error and without storing a model.
func (f *CashFlowForecaster) Train(ctx context.Context, userID string, txs []models.Transaction) error {
	series := features.DailyNetFlow(txs)
	if series.Observed < MinCashFlowObservations {
		f.logger.Info("cash flow training skipped: insufficient data",
			logger.UserID(userID),
			logger.Int("observations", series.Observed),
			logger.Int("required", MinCashFlowObservations))
		return nil
	}

	m, err := fitARI(series.Values, arOrder)
	if err != nil {
		f.logger.Error("cash flow fit failed", logger.UserID(userID), logger.Error(err))
		return fmt.Errorf("fit cash flow model: %w", err)
	}
	m.LastDate = series.End()

	f.mu.Lock()
	f.models[userID] = m
	f.mu.Unlock()

	if f.store != nil {
		blob, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode cash flow model: %w", err)
		}
		if _, err := f.store.Save(ctx, CashFlowModelKey(userID), CashFlowKind, blob); err != nil {
			return fmt.Errorf("save cash flow model: %w", err)
		}
	}
	f.logger.Info("cash flow model trained", logger.UserID(userID), logger.Int("observations", m.Points))
	return nil
}

// Load restores a persisted model into memory. A missing model is not an error.
func (f *CashFlowForecaster) Load(ctx context.Context, userID string) (bool, error) {
	if f.store == nil {
		return false, nil
	}
	rec, err := f.store.Load(ctx, CashFlowModelKey(userID))
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var m cashFlowModel
	if err := json.Unmarshal(rec.Blob, &m); err != nil || len(m.Phi) != len(m.LastDiffs) {
		return false, fmt.Errorf("cash flow model %s: %w", rec.Key, models.ErrCorruptModel)
	}
	f.mu.Lock()
	f.models[userID] = &m
	f.mu.Unlock()
	return true, nil
}

func (f *CashFlowForecaster) Trained(userID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.models[userID]
	return ok
}

// Forecast returns exactly steps daily points starting the day after the last
// training date, or an empty slice when the user has no model.
func (f *CashFlowForecaster) Forecast(userID string, steps int) []models.ForecastPoint {
	f.mu.RLock()
	m := f.models[userID]
	f.mu.RUnlock()
	if m == nil || steps <= 0 {
		return []models.ForecastPoint{}
	}

	p := len(m.Phi)
	diffs := append([]float64(nil), m.LastDiffs...)
	level := m.LastLevel
	out := make([]models.ForecastPoint, 0, steps)
	for h := 1; h <= steps; h++ {
		next := 0.0
		for i := 0; i < p; i++ {
			next += m.Phi[i] * diffs[len(diffs)-1-i]
		}
		diffs = append(diffs, next)
		level += next
		out = append(out, models.ForecastPoint{
			Date:        m.LastDate.AddDate(0, 0, h),
			NetCashFlow: util.Round2(level),
		})
	}
	return out
}

func fitARI(y []float64, p int) (*cashFlowModel, error) {
	z := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		z[i-1] = y[i] - y[i-1]
	}
	if len(z) <= p {
		return nil, models.ErrInsufficientData
	}

	rows := make([][]float64, 0, len(z)-p)
	target := make([]float64, 0, len(z)-p)
	for t := p; t < len(z); t++ {
		row := make([]float64, p)
		for i := 0; i < p; i++ {
			row[i] = z[t-1-i]
		}
		rows = append(rows, row)
		target = append(target, z[t])
	}
	phi, err := leastSquares(rows, target, ridge)
	if err != nil {
		return nil, err
	}
	return &cashFlowModel{
		Phi:       phi,
		LastLevel: y[len(y)-1],
		LastDiffs: append([]float64(nil), z[len(z)-p:]...),
		Points:    len(y),
	}, nil
}

var _ domsvc.CashFlowForecaster = (*CashFlowForecaster)(nil)
