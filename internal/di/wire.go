//go:build wireinject
// +build wireinject

package di

import (
	"FinGenius/pkg/config"
	"FinGenius/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideStore,
	ProvideRedisCache,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideClickHouseClient,
	ProvideAudit,
	ProvideModelStore,
	ProvideAMQP,
)

var notifySet = wire.NewSet(
	ProvideHub,
	ProvideNotifyRouter,
	ProvideDispatcher,
)

var usecaseSet = wire.NewSet(
	ProvideTaskQueue,
	ProvideSnapshotCache,
	ProvideProviderClient,
	ProvideCategorizer,
	ProvideForecaster,
	ProvidePipeline,
	ProvideApprovalService,
	ProvideBatchRunner,
	ProvideAccountService,
	ProvideTrainingService,
	ProvideSummaryService,
	ProvideJobSet,
	ProvideNotificationHandler,
)

// InitializeApp wires the API process: HTTP, task workers and the
// notification consumer.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		notifySet,
		usecaseSet,
		ProvideLimiter,
		ProvideAPIRouter,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeScheduler wires the scheduler process.
func InitializeScheduler(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRedisCache,
		ProvideTaskPublisher,
		ProvideScheduler,
		ProvideSchedulerApp,
	)
	return &server.App{}, nil
}
