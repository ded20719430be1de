//go:build wireinject
// +build wireinject

package di

import (
	"CandleScope/pkg/config"
	"CandleScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Exchange adapters
		ProvideMarketAPI,
		ProvideStreamDialer,
		ProvideBroker,
		ProvideDetector,
		ProvideAlertPublisher,

		// Use cases
		ProvideMarketDataUseCase,
		ProvideStatsUseCase,
		ProvideExportUseCase,
		ProvideAlertsUseCase,
		ProvideViewStore,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
