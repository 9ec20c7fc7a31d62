package di

import (
	"context"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	"FinGenius/internal/handler/api"
	internalrepo "FinGenius/internal/repository"
	"FinGenius/internal/repository/sqlite"
	snapcache "FinGenius/internal/service/cache"
	trainmetrics "FinGenius/internal/service/metrics"
	"FinGenius/internal/service/ratelimit"
	"FinGenius/internal/services/advisor"
	"FinGenius/internal/services/notify"
	"FinGenius/internal/services/provider"
	"FinGenius/internal/usecase"
	pkgamqp "FinGenius/pkg/amqp"
	"FinGenius/pkg/cache"
	pkgch "FinGenius/pkg/clickhouse"
	"FinGenius/pkg/config"
	xhttp "FinGenius/pkg/http"
	"FinGenius/pkg/http/middleware"
	pkgkafka "FinGenius/pkg/kafka"
	applogger "FinGenius/pkg/logger"
	"FinGenius/pkg/metrics"
	"FinGenius/pkg/queue"
	"FinGenius/pkg/server"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates the Prometheus recorder and registers the training
// collectors on the default registry.
func ProvideMetrics() *metrics.Recorder {
	trainmetrics.Register()
	return metrics.New()
}

// ProvideStore opens the sqlite database and applies migrations.
func ProvideStore(cfg *config.Config, l *applogger.Logger) (*sqlite.Store, error) {
	store, err := sqlite.Open(cfg.Database.Path, l)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return store, nil
}

// ProvideRedisCache connects to Redis. The same client backs the task queue
// and the approval locks.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideTaskQueue creates the producer/consumer task queue. Jobs are
// registered in ProvideApp because the job set itself depends on the queue.
func ProvideTaskQueue(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache) *queue.RedisQueue {
	return queue.NewRedisQueue(l, queueConfig(cfg), rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix(queueKeyPrefix(cfg)))
}

// ProvideTaskPublisher creates a producer-only queue for the scheduler.
func ProvideTaskPublisher(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache) *queue.RedisQueue {
	return queue.NewRedisPublisher(l, rc.Client(), queue.WithKeyPrefix(queueKeyPrefix(cfg)))
}

func queueConfig(cfg *config.Config) *queue.QueueConfig {
	return &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
}

func queueKeyPrefix(cfg *config.Config) string {
	if cfg.Redis.KeyPrefix == "" {
		return queue.DefaultKeyPrefix
	}
	return cfg.Redis.KeyPrefix + ":queue"
}

// ProvideKafkaProducer creates the Kafka producer, or nil when Kafka is
// disabled. When a log topic is configured the logger's error digest is
// published through it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogTopic != "" {
		l.AttachDigest(&applogger.DigestConfig{
			Interval:  time.Minute,
			Topic:     cfg.Kafka.LogTopic,
			Publisher: producer,
		})
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the notification consumer, or nil when Kafka
// is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook(l, 2*time.Second))
	return consumer, nil
}

// ProvideClickHouseClient creates the ClickHouse client, or nil when the
// audit trail is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAudit creates the audit log and its table. Without ClickHouse every
// event is dropped.
func ProvideAudit(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (domrepo.AuditLog, error) {
	if ch == nil {
		return internalrepo.NopAudit{}, nil
	}
	table := cfg.ClickHouse.AuditTable
	if table == "" {
		table = cfg.ClickHouse.Database + ".action_audit"
	}
	audit := internalrepo.NewClickHouseAudit(ch.DB(), table, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.InitSchema(ctx, audit.SchemaStatements()); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return audit, nil
}

// ProvideModelStore selects the blob store for trained models.
func ProvideModelStore(cfg *config.Config, store *sqlite.Store, l *applogger.Logger) (domrepo.ModelStore, error) {
	switch cfg.ModelStore.Backend {
	case "", "sqlite":
		return sqlite.NewModelStore(store), nil
	case "gcs":
		// The client keeps its context for token refresh, so it must not be cancelled.
		client, err := internalrepo.NewGCSClient(context.Background(), cfg.ModelStore.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return internalrepo.NewGCSModelStore(client, cfg.ModelStore.Bucket, cfg.ModelStore.Prefix, l), nil
	default:
		return nil, fmt.Errorf("unknown model store backend %q", cfg.ModelStore.Backend)
	}
}

// ProvideAMQP connects to the SMS gateway broker, or returns nil when no URL
// is configured.
func ProvideAMQP(cfg *config.Config, l *applogger.Logger) (*pkgamqp.Client, error) {
	n := cfg.Notification.AMQP
	if n.URL == "" {
		return nil, nil
	}
	client, err := pkgamqp.NewClient(n.URL, n.Exchange, n.Queue, l)
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	return client, nil
}

func ProvideHub(l *applogger.Logger) *notify.Hub {
	return notify.NewHub(l)
}

// ProvideNotifyRouter assembles the channel senders. Channels without a
// configured backend only log.
func ProvideNotifyRouter(
	cfg *config.Config,
	store *sqlite.Store,
	rec *metrics.Recorder,
	l *applogger.Logger,
	hub *notify.Hub,
	mq *pkgamqp.Client,
) *notify.Router {
	mg := cfg.Notification.Mailgun
	email := notify.NewEmailSender(notify.MailgunConfig{
		Domain:     mg.Domain,
		APIKey:     mg.APIKey,
		Sender:     mg.Sender,
		SenderName: mg.SenderName,
	}, l)

	var sms notify.Sender = notify.NewLogSender(models.ChannelSMS, l)
	if mq != nil {
		sms = notify.NewSMSSender(mq)
	}

	return notify.NewRouter(store, defaultChannel(cfg), rec, l, email, sms, hub)
}

func defaultChannel(cfg *config.Config) models.Channel {
	ch := models.Channel(cfg.Notification.DefaultChannel)
	if !ch.Valid() {
		return models.ChannelEmail
	}
	return ch
}

// ProvideDispatcher publishes notifications to Kafka when enabled so delivery
// is retried by the consumer; otherwise the router delivers inline.
func ProvideDispatcher(cfg *config.Config, router *notify.Router, producer *pkgkafka.Producer) domrepo.Dispatcher {
	if producer == nil {
		return router
	}
	return internalrepo.NewKafkaDispatcher(producer, cfg.Kafka.NotificationTopic)
}

func ProvideSnapshotCache(cfg *config.Config, store *sqlite.Store) *snapcache.SnapshotCache {
	return snapcache.NewSnapshotCache(store, cfg.Automation.SnapshotTTL)
}

func ProvideProviderClient(cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) *provider.Client {
	p := cfg.Provider
	return provider.NewClient(provider.Config{
		BaseURL:    p.BaseURL,
		ClientID:   p.ClientID,
		Secret:     p.Secret,
		Timeout:    p.Timeout,
		MaxRetries: p.MaxRetries,
		PageSize:   p.PageSize,
	}, rec, l)
}

// ProvideCategorizer returns the process-wide categorizer shared by the
// ingestion path and the training service.
func ProvideCategorizer() *advisor.Categorizer {
	return advisor.NewCategorizer()
}

func ProvideForecaster(l *applogger.Logger, blobs domrepo.ModelStore) *advisor.CashFlowForecaster {
	return advisor.NewCashFlowForecaster(l, blobs)
}

func ProvidePipeline(
	cfg *config.Config,
	snapshots *snapcache.SnapshotCache,
	store *sqlite.Store,
	dispatcher domrepo.Dispatcher,
	audit domrepo.AuditLog,
	forecaster *advisor.CashFlowForecaster,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.AutomationPipeline {
	a := cfg.Automation
	return usecase.NewAutomationPipeline(
		snapshots,
		store,
		dispatcher,
		audit,
		advisor.NewBudgetOptimizer(),
		advisor.NewSavingsStrategist(),
		advisor.NewInvestmentAdvisor(l),
		forecaster,
		rec,
		l,
		usecase.PipelineConfig{
			GeneratorTimeout:   a.GeneratorTimeout,
			ForecastEnabled:    a.ForecastEnabled,
			ForecastSteps:      a.ForecastSteps,
			RebalanceTolerance: a.RebalanceTolerance,
			Channel:            defaultChannel(cfg),
		},
	)
}

// ProvideApprovalService guards approvals with Redis locks so concurrent API
// replicas serialize on the same action.
func ProvideApprovalService(
	cfg *config.Config,
	store *sqlite.Store,
	audit domrepo.AuditLog,
	rc *cache.RedisCache,
	snapshots *snapcache.SnapshotCache,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.ApprovalService {
	return usecase.NewApprovalService(store, audit, rc, snapshots, rec, l, cfg.Automation.LockTTL)
}

func ProvideBatchRunner(
	cfg *config.Config,
	snapshots *snapcache.SnapshotCache,
	pipeline *usecase.AutomationPipeline,
	l *applogger.Logger,
) *usecase.BatchRunner {
	return usecase.NewBatchRunner(snapshots, pipeline, cfg.Automation.Concurrency, l)
}

func ProvideAccountService(
	cfg *config.Config,
	store *sqlite.Store,
	snapshots *snapcache.SnapshotCache,
	client *provider.Client,
	tasks *queue.RedisQueue,
	categorizer *advisor.Categorizer,
	l *applogger.Logger,
) (*usecase.AccountService, error) {
	convention, err := provider.ParseConvention(cfg.Provider.AmountConvention)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	return usecase.NewAccountService(store, snapshots, client, tasks, categorizer, snapshots, convention, l), nil
}

func ProvideTrainingService(
	cfg *config.Config,
	store *sqlite.Store,
	snapshots *snapcache.SnapshotCache,
	blobs domrepo.ModelStore,
	categorizer *advisor.Categorizer,
	forecaster *advisor.CashFlowForecaster,
	l *applogger.Logger,
) *usecase.TrainingService {
	return usecase.NewTrainingService(store, store, snapshots, blobs, categorizer, forecaster,
		advisor.NewBehaviorAnalyzer(),
		usecase.TrainingConfig{
			SegmentClusters: cfg.Automation.SegmentClusters,
			ForecastSteps:   cfg.Automation.ForecastSteps,
		},
		l)
}

func ProvideSummaryService(
	cfg *config.Config,
	store *sqlite.Store,
	snapshots *snapcache.SnapshotCache,
	dispatcher domrepo.Dispatcher,
	l *applogger.Logger,
) *usecase.SummaryService {
	return usecase.NewSummaryService(store, snapshots, store, dispatcher, defaultChannel(cfg), l)
}

func ProvideJobSet(
	accounts *usecase.AccountService,
	pipeline *usecase.AutomationPipeline,
	batch *usecase.BatchRunner,
	training *usecase.TrainingService,
	summary *usecase.SummaryService,
) *usecase.JobSet {
	return &usecase.JobSet{
		Accounts: accounts,
		Pipeline: pipeline,
		Batch:    batch,
		Training: training,
		Summary:  summary,
	}
}

func ProvideNotificationHandler(cfg *config.Config, router *notify.Router, rec *metrics.Recorder) *usecase.NotificationHandler {
	return usecase.NewNotificationHandler(cfg.Kafka.NotificationTopic, router, rec)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Automation.RunsPerMinute, 2)
}

// ProvideAPIRouter builds the echo route set. Optional backends only add a
// health check when configured.
func ProvideAPIRouter(
	cfg *config.Config,
	l *applogger.Logger,
	pipeline *usecase.AutomationPipeline,
	approvals *usecase.ApprovalService,
	limiter *ratelimit.Limiter,
	accounts *usecase.AccountService,
	training *usecase.TrainingService,
	hub *notify.Hub,
	store *sqlite.Store,
	rc *cache.RedisCache,
	ch *pkgch.Client,
) *api.Router {
	checks := map[string]api.HealthCheck{
		"sqlite": store.Health,
		"redis": func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		},
	}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}

	return api.NewRouter(
		l,
		middleware.AuthConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer},
		api.NewAutomationHandler(l, pipeline, approvals, limiter),
		api.NewAccountsHandler(l, accounts),
		api.NewInsightsHandler(l, training),
		hub,
		checks,
	)
}

func ProvideHTTPServer(cfg *config.Config, router *api.Router, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(router,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp registers the task jobs and hands every long-lived resource to
// the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	tasks *queue.RedisQueue,
	jobs *usecase.JobSet,
	consumer *pkgkafka.Consumer,
	handler *usecase.NotificationHandler,
	training *usecase.TrainingService,
	hub *notify.Hub,
	store *sqlite.Store,
	rc *cache.RedisCache,
	blobs domrepo.ModelStore,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	mq *pkgamqp.Client,
) *server.App {
	tasks.RegisterJobs(jobs.Jobs())

	opts := []server.Option{
		server.WithWorkers(tasks),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithStartupTask("load_categorizer", func(ctx context.Context) error {
			ok, err := training.LoadCategorizer(ctx)
			if err == nil && !ok {
				l.Info("no persisted categorizer, predictions disabled until training")
			}
			return err
		}),
		server.WithCloser("sqlite", store.Close),
		server.WithCloser("redis", rc.Close),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, handler))
	}
	if c, ok := blobs.(interface{ Close() error }); ok {
		opts = append(opts, server.WithCloser("model_store", c.Close))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka_producer", producer.Close))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	if mq != nil {
		opts = append(opts, server.WithCloser("amqp", mq.Close))
	}
	opts = append(opts, server.WithCloser("hub", func() error {
		hub.Close()
		return nil
	}))

	return server.New(l, srv, opts...)
}

func ProvideScheduler(cfg *config.Config, publisher *queue.RedisQueue, l *applogger.Logger) *usecase.Scheduler {
	s := cfg.Scheduler
	return usecase.NewScheduler(publisher, usecase.ScheduleConfig{
		AccountRefresh:   s.AccountRefresh,
		DailyAutomations: s.DailyAutomations,
		ModelTraining:    s.ModelTraining,
		DailySummary:     s.DailySummary,
	}.Entries(), l.With(applogger.String("component", "scheduler")))
}

// ProvideSchedulerApp runs the scheduler loop with a producer-only queue and
// no HTTP server.
func ProvideSchedulerApp(
	cfg *config.Config,
	l *applogger.Logger,
	publisher *queue.RedisQueue,
	sched *usecase.Scheduler,
	rc *cache.RedisCache,
) *server.App {
	return server.New(l, nil,
		server.WithWorkers(publisher),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithLoop("scheduler", sched.Run),
		server.WithCloser("redis", rc.Close),
	)
}
