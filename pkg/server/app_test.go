package server

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	applogger "FinGenius/pkg/logger"
)

func TestAppLifecycleWithoutHTTP(t *testing.T) {
	var (
		ticks  int32
		order  []string
		booted bool
	)

	app := New(applogger.NewNop(), nil,
		WithStartupTask("boom", func(context.Context) error { return errors.New("boom") }),
		WithStartupTask("boot", func(context.Context) error {
			booted = true
			return nil
		}),
		WithLoop("ticker", func(ctx context.Context) error {
			tk := time.NewTicker(time.Millisecond)
			defer tk.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-tk.C:
					atomic.AddInt32(&ticks, 1)
				}
			}
		}),
		WithCloser("first", func() error {
			order = append(order, "first")
			return nil
		}),
		WithCloser("second", func() error {
			order = append(order, "second")
			return errors.New("close failed")
		}),
		WithShutdownTimeout(time.Second),
	)

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !booted {
		t.Error("startup task after a failing one did not run")
	}

	time.Sleep(20 * time.Millisecond)
	if err := app.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if atomic.LoadInt32(&ticks) == 0 {
		t.Error("background loop never ran")
	}

	after := atomic.LoadInt32(&ticks)
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&ticks) != after {
		t.Error("background loop still running after shutdown")
	}
	if want := []string{"second", "first"}; !reflect.DeepEqual(order, want) {
		t.Errorf("close order = %v, want %v", order, want)
	}
}
