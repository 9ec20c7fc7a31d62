package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/services/advisor"
	"FinGenius/pkg/logger"
)

type fakeTxStore struct {
	examples []models.LabeledExample
	byUser   map[string][]models.Transaction
	spend    map[string]map[string]float64
}

func (f *fakeTxStore) TransactionsByUser(_ context.Context, userID string, _ time.Time) ([]models.Transaction, error) {
	return f.byUser[userID], nil
}

func (f *fakeTxStore) LabeledExamples(context.Context, int) ([]models.LabeledExample, error) {
	return f.examples, nil
}

func (f *fakeTxStore) CategorySpend(context.Context) (map[string]map[string]float64, error) {
	return f.spend, nil
}

type fakeUsers struct {
	users    []models.User
	segments map[string]int
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUsers) DailySummaryUsers(context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.DailySummary {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) SaveSegment(_ context.Context, id string, seg int) error {
	if f.segments == nil {
		f.segments = map[string]int{}
	}
	f.segments[id] = seg
	return nil
}

func (f *fakeUsers) GetSegment(_ context.Context, id string) (int, error) {
	s, ok := f.segments[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	return s, nil
}

func newTraining(txs *fakeTxStore, users *fakeUsers, store *memModels) *TrainingService {
	lg := logger.NewNop()
	snaps := &fakeSnapshots{snaps: map[string]*models.FinancialSnapshot{}}
	for id := range txs.byUser {
		snaps.snaps[id] = &models.FinancialSnapshot{UserID: id}
	}
	return NewTrainingService(txs, users, snaps, store,
		advisor.NewCategorizer(),
		advisor.NewCashFlowForecaster(lg, store),
		advisor.NewBehaviorAnalyzer(),
		TrainingConfig{SegmentClusters: 2, ForecastSteps: 7}, lg)
}

func TestTrainCategorizerPersistsAndReloads(t *testing.T) {
	store := newMemModels()
	txs := &fakeTxStore{examples: []models.LabeledExample{
		{Description: "whole foods market", Category: "Groceries"},
		{Description: "trader joes", Category: "Groceries"},
		{Description: "delta airlines", Category: "Travel"},
		{Description: "united airlines", Category: "Travel"},
	}}
	svc := newTraining(txs, &fakeUsers{}, store)

	v, err := svc.TrainCategorizer(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("TrainCategorizer = %d, %v", v, err)
	}
	if rec := store.recs[advisor.CategorizerModelKey]; rec == nil || rec.Kind != advisor.CategorizerKind {
		t.Fatalf("model not saved under its key: %+v", store.recs)
	}

	fresh := newTraining(txs, &fakeUsers{}, store)
	got, err := fresh.Categorize(context.Background(), "american airlines")
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if got != "Travel" {
		t.Errorf("Categorize = %q, want Travel", got)
	}
}

func TestTrainCategorizerInsufficientData(t *testing.T) {
	store := newMemModels()
	svc := newTraining(&fakeTxStore{examples: []models.LabeledExample{
		{Description: "a", Category: "Only"},
	}}, &fakeUsers{}, store)

	v, err := svc.TrainCategorizer(context.Background())
	if err != nil || v != 0 {
		t.Fatalf("TrainCategorizer = %d, %v", v, err)
	}
	if len(store.recs) != 0 {
		t.Error("model stored without training")
	}
	if _, err := svc.Categorize(context.Background(), "anything"); !errors.Is(err, models.ErrUntrainedModel) {
		t.Errorf("err = %v, want untrained", err)
	}
}

func dailyFlow(days int) []models.Transaction {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Transaction, 0, days)
	for i := 0; i < days; i++ {
		typ := models.Debit
		if i%7 == 0 {
			typ = models.Credit
		}
		out = append(out, models.Transaction{Amount: float64(10 + i%5), Type: typ, Date: start.AddDate(0, 0, i)})
	}
	return out
}

func TestTrainAllForecasters(t *testing.T) {
	store := newMemModels()
	svc := newTraining(&fakeTxStore{byUser: map[string][]models.Transaction{
		"rich":   dailyFlow(40),
		"sparse": dailyFlow(19),
	}}, &fakeUsers{}, store)

	trained, failed, err := svc.TrainAllForecasters(context.Background())
	if err != nil {
		t.Fatalf("TrainAllForecasters: %v", err)
	}
	if trained != 1 || failed != 0 {
		t.Errorf("trained = %d, failed = %d", trained, failed)
	}

	pts, err := svc.CashFlowForecast(context.Background(), "rich", 0)
	if err != nil || len(pts) != 7 {
		t.Fatalf("forecast = %d points, %v", len(pts), err)
	}
	pts, err = svc.CashFlowForecast(context.Background(), "sparse", 5)
	if err != nil || pts == nil || len(pts) != 0 {
		t.Errorf("sparse forecast = %v, %v; want empty", pts, err)
	}
}

func TestAnalyzeBehaviorAndSegment(t *testing.T) {
	spend := map[string]map[string]float64{}
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("u%d", i)
		if i < 3 {
			spend[id] = map[string]float64{"Dining": 900 + float64(i), "Groceries": 100}
		} else {
			spend[id] = map[string]float64{"Dining": 50, "Groceries": 600 + float64(i)}
		}
	}
	store := newMemModels()
	users := &fakeUsers{}
	svc := newTraining(&fakeTxStore{spend: spend}, users, store)

	if _, err := svc.Segment(context.Background(), "u0"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("segment before analysis: %v", err)
	}

	m, err := svc.AnalyzeBehavior(context.Background())
	if err != nil || m == nil {
		t.Fatalf("AnalyzeBehavior = %v, %v", m, err)
	}
	if len(users.segments) != 6 {
		t.Fatalf("segments saved = %d", len(users.segments))
	}
	if users.segments["u0"] == users.segments["u5"] {
		t.Errorf("distinct spenders share a segment: %v", users.segments)
	}

	fresh := newTraining(&fakeTxStore{}, users, store)
	ins, err := fresh.Segment(context.Background(), "u0")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if ins.Segment != users.segments["u0"] || ins.Profile["Dining"] < ins.Profile["Groceries"] {
		t.Errorf("insight = %+v", ins)
	}
}

func TestAnalyzeBehaviorTooFewUsers(t *testing.T) {
	svc := newTraining(&fakeTxStore{spend: map[string]map[string]float64{"u1": {"Dining": 1}}}, &fakeUsers{}, newMemModels())
	m, err := svc.AnalyzeBehavior(context.Background())
	if err != nil || m != nil {
		t.Errorf("AnalyzeBehavior = %v, %v; want skip", m, err)
	}
}
