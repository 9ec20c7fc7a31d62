package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	xhttp "FinGenius/pkg/http"
	pkgkafka "FinGenius/pkg/kafka"
	applogger "FinGenius/pkg/logger"
	"FinGenius/pkg/queue"
)

// StartupTask runs once before the servers start. A failing task is logged
// and does not stop the process.
type StartupTask struct {
	Name string
	Fn   func(ctx context.Context) error
}

type loop struct {
	name string
	fn   func(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	logger          *applogger.Logger
	httpServer      *xhttp.Server
	workers         *queue.RedisQueue
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	startup         []StartupTask
	loops           []loop
	closers         []closer
	shutdownTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*App)

// WithWorkers runs the background task consumer alongside the HTTP server.
func WithWorkers(q *queue.RedisQueue) Option {
	return func(a *App) { a.workers = q }
}

// WithConsumer runs a Kafka consumer with the given handlers. A nil consumer
// is ignored.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = handlers
	}
}

func WithStartupTask(name string, fn func(ctx context.Context) error) Option {
	return func(a *App) { a.startup = append(a.startup, StartupTask{Name: name, Fn: fn}) }
}

// WithLoop runs fn in the background until shutdown.
func WithLoop(name string, fn func(ctx context.Context) error) Option {
	return func(a *App) { a.loops = append(a.loops, loop{name: name, fn: fn}) }
}

// WithCloser registers a resource closed on shutdown, in reverse order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, closer{name: name, fn: fn}) }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates a new App instance with all dependencies. httpServer may be nil
// for processes that only run background loops.
func New(logger *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{
		logger:          logger,
		httpServer:      httpServer,
		shutdownTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown()
}

// Start launches every component without blocking.
func (a *App) Start(ctx context.Context) error {
	for _, t := range a.startup {
		if err := t.Fn(ctx); err != nil {
			a.logger.Warn("startup task failed", applogger.String("task", t.Name), applogger.Error(err))
		}
	}

	if a.workers != nil {
		if err := a.workers.Start(); err != nil {
			a.logger.Error("task workers start error", applogger.Error(err))
			return err
		}
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	for _, lp := range a.loops {
		a.wg.Add(1)
		go func(lp loop) {
			defer a.wg.Done()
			if err := lp.fn(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("background loop stopped", applogger.String("loop", lp.name), applogger.Error(err))
			}
		}(lp)
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			return err
		}
	}
	return nil
}

// Shutdown stops intake first, then drains workers, then closes resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.wg.Wait()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.workers != nil {
		if err := a.workers.Stop(ctx); err != nil {
			a.logger.Warn("task workers stop error", applogger.Error(err))
		}
	}

	// Flush the digest while the producer is still open.
	a.logger.DetachDigest()

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
