package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/logger"
	"FinGenius/pkg/util"
)

type memModelStore struct {
	mu      sync.Mutex
	records map[string]*models.ModelRecord
}

func newMemModelStore() *memModelStore {
	return &memModelStore{records: map[string]*models.ModelRecord{}}
}

func (s *memModelStore) Save(_ context.Context, key, kind string, blob []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := int64(1)
	if r, ok := s.records[key]; ok {
		v = r.Version + 1
	}
	s.records[key] = &models.ModelRecord{Key: key, Kind: kind, Version: v, Blob: append([]byte(nil), blob...)}
	return v, nil
}

func (s *memModelStore) Load(_ context.Context, key string) (*models.ModelRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return r, nil
}

// dailyTxs produces one transaction per day for n days starting 2024-01-01.
func dailyTxs(n int, amount func(i int) (float64, models.TransactionType)) []models.Transaction {
	out := make([]models.Transaction, 0, n)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		a, typ := amount(i)
		out = append(out, models.Transaction{Date: start.AddDate(0, 0, i), Amount: a, Type: typ})
	}
	return out
}

func TestForecasterSkipsInsufficientData(t *testing.T) {
	store := newMemModelStore()
	f := NewCashFlowForecaster(logger.NewNop(), store)

	txs := dailyTxs(19, func(int) (float64, models.TransactionType) { return 10, models.Credit })
	if err := f.Train(context.Background(), "u1", txs); err != nil {
		t.Fatalf("insufficient data must not error: %v", err)
	}
	if f.Trained("u1") {
		t.Fatal("no model must be stored")
	}
	if _, err := store.Load(context.Background(), CashFlowModelKey("u1")); !errors.Is(err, models.ErrNotFound) {
		t.Fatal("no model must be persisted")
	}
	if got := f.Forecast("u1", 30); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil forecast, got %v", got)
	}
}

func TestForecasterSparseHistorySkipsTraining(t *testing.T) {
	f := NewCashFlowForecaster(logger.NewNop(), nil)
	// two transactions 25 days apart gap-fill to 26 points but only two days are observed
	txs := []models.Transaction{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: 100, Type: models.Credit},
		{Date: time.Date(2024, 1, 26, 0, 0, 0, 0, time.UTC), Amount: 40, Type: models.Debit},
	}
	if err := f.Train(context.Background(), "u1", txs); err != nil {
		t.Fatalf("train: %v", err)
	}
	if f.Trained("u1") {
		t.Fatal("sparse history must not produce a model")
	}
	if got := f.Forecast("u1", 30); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil forecast, got %v", got)
	}
}

func TestForecasterProducesStepsFromNextDay(t *testing.T) {
	store := newMemModelStore()
	f := NewCashFlowForecaster(logger.NewNop(), store)

	txs := dailyTxs(40, func(i int) (float64, models.TransactionType) {
		amount := float64(50+(i*37)%90) + 0.25
		if i%3 == 0 {
			return amount, models.Debit
		}
		return amount, models.Credit
	})
	if err := f.Train(context.Background(), "u1", txs); err != nil {
		t.Fatalf("train: %v", err)
	}

	got := f.Forecast("u1", 7)
	if len(got) != 7 {
		t.Fatalf("expected 7 points, got %d", len(got))
	}
	first := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	for i, p := range got {
		if want := first.AddDate(0, 0, i); !p.Date.Equal(want) {
			t.Fatalf("point %d dated %v, want %v", i, p.Date, want)
		}
		if util.Round2(p.NetCashFlow) != p.NetCashFlow {
			t.Fatalf("point %d not rounded to cents: %v", i, p.NetCashFlow)
		}
	}

	// a fresh forecaster restores the persisted model
	g := NewCashFlowForecaster(logger.NewNop(), store)
	ok, err := g.Load(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	again := g.Forecast("u1", 7)
	for i := range got {
		if !got[i].Date.Equal(again[i].Date) || got[i].NetCashFlow != again[i].NetCashFlow {
			t.Fatalf("restored forecast differs at %d: %v vs %v", i, got[i], again[i])
		}
	}
}

func TestForecasterFlatSeries(t *testing.T) {
	f := NewCashFlowForecaster(logger.NewNop(), nil)
	txs := dailyTxs(30, func(int) (float64, models.TransactionType) { return 50, models.Credit })
	if err := f.Train(context.Background(), "u1", txs); err != nil {
		t.Fatalf("train: %v", err)
	}
	for _, p := range f.Forecast("u1", 5) {
		if p.NetCashFlow != 50 {
			t.Fatalf("flat series should forecast its level, got %v", p.NetCashFlow)
		}
	}
}

func TestForecastWithoutModelIsEmpty(t *testing.T) {
	f := NewCashFlowForecaster(logger.NewNop(), nil)
	if got := f.Forecast("nobody", 30); len(got) != 0 {
		t.Fatalf("expected empty forecast, got %d points", len(got))
	}
}
