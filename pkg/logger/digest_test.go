package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]DigestEntry
}

func (p *capturePublisher) Publish(_ context.Context, _ string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, value.([]DigestEntry))
	return nil
}

func TestDigestCollapsesRepeatedLines(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 10, Publisher: pub, Topic: "logs"})

	for i := 0; i < 5; i++ {
		d.Add("error", "sync failed", map[string]interface{}{"user_id": "u1"}, "a.go:1")
	}
	d.Add("error", "sync failed", map[string]interface{}{"user_id": "u2"}, "a.go:1")
	d.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 {
		t.Fatalf("expected one batch on close, got %d", len(pub.batches))
	}
	batch := pub.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", len(batch))
	}
	counts := map[interface{}]int{}
	for _, e := range batch {
		counts[e.Fields["user_id"]] = e.Count
	}
	if counts["u1"] != 5 || counts["u2"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestNopLoggerWithFields(t *testing.T) {
	l := NewNop().With(UserID("u1"))
	l.Info("noop", Int("n", 1), Duration("took", time.Second))
	l.Error("noop", Error(nil))
}
