//go:build wireinject
// +build wireinject

package di

import (
	"ChartFeed/pkg/config"
	"ChartFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisQueue,

		// Repositories (with business logic)
		ProvideCandleStorage,
		ProvideCandlePublisher,
		ProvideMarketStream,

		// Use cases
		ProvideCandleProcessor,
		ProvideCandleCollector,
		ProvideKafkaCandlesHandler,

		// Supporting services
		ProvideBackfillClient,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
