package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	domsvc "FinGenius/internal/domain/service"
	trainmetrics "FinGenius/internal/service/metrics"
	"FinGenius/internal/services/advisor"
	applogger "FinGenius/pkg/logger"
)

// Training outcomes, used as metric labels.
const (
	OutcomeTrained = "trained"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

const (
	maxLabeledExamples = 50000
	forecastWindow     = 365 * 24 * time.Hour
)

type TrainingConfig struct {
	SegmentClusters int
	ForecastSteps   int
}

// TrainingService trains the shared and per-user models and answers the
// read-side queries that depend on them.
type TrainingService struct {
	txs         domrepo.TransactionStore
	users       domrepo.UserStore
	snapshots   domrepo.SnapshotReader
	store       domrepo.ModelStore
	categorizer domsvc.Categorizer
	forecaster  domsvc.CashFlowForecaster
	behavior    domsvc.BehaviorAnalyzer
	cfg         TrainingConfig
	l           *applogger.Logger
	now         func() time.Time

	mu       sync.RWMutex
	segments *models.SegmentModel
}

func NewTrainingService(
	txs domrepo.TransactionStore,
	users domrepo.UserStore,
	snapshots domrepo.SnapshotReader,
	store domrepo.ModelStore,
	categorizer domsvc.Categorizer,
	forecaster domsvc.CashFlowForecaster,
	behavior domsvc.BehaviorAnalyzer,
	cfg TrainingConfig,
	l *applogger.Logger,
) *TrainingService {
	if cfg.SegmentClusters <= 0 {
		cfg.SegmentClusters = 3
	}
	if cfg.ForecastSteps <= 0 {
		cfg.ForecastSteps = 30
	}
	return &TrainingService{
		txs:         txs,
		users:       users,
		snapshots:   snapshots,
		store:       store,
		categorizer: categorizer,
		forecaster:  forecaster,
		behavior:    behavior,
		cfg:         cfg,
		l:           l.With(applogger.String("component", "training")),
		now:         time.Now,
	}
}

// TrainCategorizer fits the categorizer on labeled history and persists it.
// Too little data is logged and reported as version 0 without error.
func (s *TrainingService) TrainCategorizer(ctx context.Context) (int64, error) {
	start := time.Now()
	examples, err := s.txs.LabeledExamples(ctx, maxLabeledExamples)
	if err != nil {
		trainmetrics.ObserveTraining("categorizer", OutcomeError, time.Since(start))
		return 0, fmt.Errorf("labeled examples: %w", err)
	}

	if err := s.categorizer.Train(examples); err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			trainmetrics.ObserveTraining("categorizer", OutcomeSkipped, time.Since(start))
			s.l.Info("categorizer training skipped", applogger.Int("examples", len(examples)), applogger.Error(err))
			return 0, nil
		}
		trainmetrics.ObserveTraining("categorizer", OutcomeError, time.Since(start))
		return 0, err
	}

	blob, err := s.categorizer.Snapshot()
	if err != nil {
		trainmetrics.ObserveTraining("categorizer", OutcomeError, time.Since(start))
		return 0, err
	}
	v, err := s.store.Save(ctx, advisor.CategorizerModelKey, advisor.CategorizerKind, blob)
	if err != nil {
		trainmetrics.ObserveTraining("categorizer", OutcomeError, time.Since(start))
		return 0, fmt.Errorf("save categorizer: %w", err)
	}

	trainmetrics.ObserveTraining("categorizer", OutcomeTrained, time.Since(start))
	trainmetrics.ModelVersion.WithLabelValues("categorizer").Set(float64(v))
	s.l.Info("categorizer trained", applogger.Int("examples", len(examples)), applogger.Int64("version", v))
	return v, nil
}

// LoadCategorizer restores the latest persisted categorizer, reporting
// false when none has been trained yet.
func (s *TrainingService) LoadCategorizer(ctx context.Context) (bool, error) {
	rec, err := s.store.Load(ctx, advisor.CategorizerModelKey)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.categorizer.Restore(rec.Blob); err != nil {
		return false, err
	}
	s.l.Info("categorizer loaded", applogger.Int64("version", rec.Version))
	return true, nil
}

// Categorize predicts a category, loading the persisted model on first use.
func (s *TrainingService) Categorize(ctx context.Context, description string) (string, error) {
	if !s.categorizer.Trained() {
		if _, err := s.LoadCategorizer(ctx); err != nil {
			return "", err
		}
	}
	return s.categorizer.Predict(description)
}

func (s *TrainingService) TrainForecaster(ctx context.Context, userID string) (bool, error) {
	start := time.Now()
	txs, err := s.txs.TransactionsByUser(ctx, userID, s.now().Add(-forecastWindow))
	if err != nil {
		trainmetrics.ObserveTraining("cash_flow", OutcomeError, time.Since(start))
		return false, fmt.Errorf("transactions for %s: %w", userID, err)
	}
	if err := s.forecaster.Train(ctx, userID, txs); err != nil {
		trainmetrics.ObserveTraining("cash_flow", OutcomeError, time.Since(start))
		return false, err
	}
	trained := s.forecaster.Trained(userID)
	outcome := OutcomeSkipped
	if trained {
		outcome = OutcomeTrained
	}
	trainmetrics.ObserveTraining("cash_flow", outcome, time.Since(start))
	return trained, nil
}

// TrainAllForecasters trains every user's forecaster; failures are isolated.
func (s *TrainingService) TrainAllForecasters(ctx context.Context) (trained, failed int, err error) {
	ids, err := s.snapshots.ListUserIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return trained, failed, ctx.Err()
		}
		ok, err := s.TrainForecaster(ctx, id)
		if err != nil {
			failed++
			s.l.Error("forecaster training failed", applogger.UserID(id), applogger.Error(err))
			continue
		}
		if ok {
			trained++
		}
	}
	s.l.Info("forecasters trained", applogger.Int("users", len(ids)), applogger.Int("trained", trained), applogger.Int("failed", failed))
	return trained, failed, nil
}

// AnalyzeBehavior clusters users by spend, persists the model and records
// each user's segment. It returns nil without error when there are too few
// users to cluster.
func (s *TrainingService) AnalyzeBehavior(ctx context.Context) (*models.SegmentModel, error) {
	start := time.Now()
	spend, err := s.txs.CategorySpend(ctx)
	if err != nil {
		trainmetrics.ObserveTraining("behavior", OutcomeError, time.Since(start))
		return nil, fmt.Errorf("category spend: %w", err)
	}

	m, err := s.behavior.Analyze(spend, s.cfg.SegmentClusters)
	if errors.Is(err, models.ErrInsufficientData) {
		trainmetrics.ObserveTraining("behavior", OutcomeSkipped, time.Since(start))
		s.l.Info("behavior analysis skipped", applogger.Error(err))
		return nil, nil
	}
	if err != nil {
		trainmetrics.ObserveTraining("behavior", OutcomeError, time.Since(start))
		return nil, err
	}

	blob, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode segment model: %w", err)
	}
	v, err := s.store.Save(ctx, advisor.SegmentModelKey, advisor.SegmentKind, blob)
	if err != nil {
		trainmetrics.ObserveTraining("behavior", OutcomeError, time.Since(start))
		return nil, fmt.Errorf("save segment model: %w", err)
	}
	for userID, seg := range m.Members {
		if err := s.users.SaveSegment(ctx, userID, seg); err != nil {
			s.l.Error("save segment failed", applogger.UserID(userID), applogger.Error(err))
		}
	}

	s.mu.Lock()
	s.segments = m
	s.mu.Unlock()

	trainmetrics.ObserveTraining("behavior", OutcomeTrained, time.Since(start))
	trainmetrics.ModelVersion.WithLabelValues("behavior").Set(float64(v))
	s.l.Info("behavior segments updated", applogger.Int("users", len(m.Members)), applogger.Int("clusters", len(m.Centroids)))
	return m, nil
}

// SegmentInsight describes the spending cluster a user belongs to.
type SegmentInsight struct {
	Segment int                `json:"segment"`
	Profile map[string]float64 `json:"profile"`
}

func (s *TrainingService) Segment(ctx context.Context, userID string) (*SegmentInsight, error) {
	seg, err := s.users.GetSegment(ctx, userID)
	if err != nil {
		return nil, err
	}
	m, err := s.segmentModel(ctx)
	if err != nil {
		return nil, err
	}
	out := &SegmentInsight{Segment: seg}
	if seg >= 0 && seg < len(m.Summary) {
		out.Profile = m.Summary[seg]
	}
	return out, nil
}

func (s *TrainingService) segmentModel(ctx context.Context) (*models.SegmentModel, error) {
	s.mu.RLock()
	m := s.segments
	s.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	rec, err := s.store.Load(ctx, advisor.SegmentModelKey)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("segments: %w", models.ErrUntrainedModel)
	}
	if err != nil {
		return nil, err
	}
	m = &models.SegmentModel{}
	if err := json.Unmarshal(rec.Blob, m); err != nil {
		return nil, fmt.Errorf("segment model: %w", models.ErrCorruptModel)
	}
	s.mu.Lock()
	s.segments = m
	s.mu.Unlock()
	return m, nil
}

// CashFlowForecast returns up to steps daily points for the user, or an
// empty slice when no model exists.
func (s *TrainingService) CashFlowForecast(ctx context.Context, userID string, steps int) ([]models.ForecastPoint, error) {
	if steps <= 0 {
		steps = s.cfg.ForecastSteps
	}
	if !s.forecaster.Trained(userID) {
		if _, err := s.forecaster.Load(ctx, userID); err != nil {
			return nil, err
		}
	}
	pts := s.forecaster.Forecast(userID, steps)
	if pts == nil {
		pts = []models.ForecastPoint{}
	}
	return pts, nil
}
