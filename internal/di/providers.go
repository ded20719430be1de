// Package di assembles the application object graph.
package di

import (
	"context"
	"fmt"
	"time"

	"CandleScope/internal/anomaly"
	"CandleScope/internal/binance"
	"CandleScope/internal/demo"
	domrepo "CandleScope/internal/domain/repository"
	"CandleScope/internal/handler/api"
	internalrepo "CandleScope/internal/repository"
	"CandleScope/internal/stream"
	"CandleScope/internal/usecase"
	"CandleScope/internal/viewstate"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/config"
	xhttp "CandleScope/pkg/http"
	pkgkafka "CandleScope/pkg/kafka"
	applogger "CandleScope/pkg/logger"
	"CandleScope/pkg/metrics"
	"CandleScope/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache selects the cache topology: layered memory+Redis when Redis
// is configured, in-process memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize)), nil
}

// ProvideMarketAPI creates the exchange REST client, or the synthetic
// source in demo mode.
func ProvideMarketAPI(cfg *config.Config, log *applogger.Logger, m domrepo.Metrics) domrepo.MarketAPI {
	if cfg.Binance.DemoMode {
		log.Info("demo mode: serving synthetic market data")
		return demo.NewSource()
	}
	return binance.NewClient(cfg, log, m)
}

// ProvideStreamDialer creates the exchange WebSocket dialer, or the
// synthetic ticker in demo mode.
func ProvideStreamDialer(cfg *config.Config, log *applogger.Logger) domrepo.StreamDialer {
	if cfg.Binance.DemoMode {
		return demo.NewSource()
	}
	return binance.NewDialer(cfg.Binance.WebSocketURL, log)
}

// ProvideBroker creates the per-symbol ticker fan-out.
func ProvideBroker(dialer domrepo.StreamDialer, log *applogger.Logger, m domrepo.Metrics) *stream.Broker {
	return stream.NewBroker(dialer, log, m)
}

// ProvideDetector creates the anomaly detector.
func ProvideDetector() *anomaly.Detector {
	return anomaly.NewDetector()
}

// producerPublisher adapts the Kafka producer to the log collector's sink.
type producerPublisher struct {
	producer *pkgkafka.Producer
}

func (p producerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideAlertPublisher creates the Kafka alert sink, or a no-op when
// alerting is disabled. With Kafka available, aggregated error logs are
// shipped on a sibling topic.
func ProvideAlertPublisher(cfg *config.Config, log *applogger.Logger) (domrepo.AlertPublisher, error) {
	if !cfg.Alerts.Enabled {
		return internalrepo.NopAlertPublisher{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Alerts.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Alerts.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Alerts.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Alerts.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Alerts.Kafka.WriteTimeout, cfg.Alerts.Kafka.ReadTimeout),
		pkgkafka.WithAsync(cfg.Alerts.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   time.Minute,
		CountThreshold: 100,
		Topic:          cfg.Alerts.Kafka.Topic + ".logs",
		Publisher:      producerPublisher{producer: producer},
	})

	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Alerts.Kafka.Topic), nil
}

// ProvideMarketDataUseCase creates the calendar/history usecase.
func ProvideMarketDataUseCase(
	cfg *config.Config,
	marketAPI domrepo.MarketAPI,
	cacheSvc cache.Service,
	detector *anomaly.Detector,
	log *applogger.Logger,
) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(
		marketAPI, cacheSvc, detector, log,
		cfg.Cache.MonthlyTTL, cfg.Cache.HistoricalTTL,
	)
}

// ProvideStatsUseCase creates the 24h stats usecase.
func ProvideStatsUseCase(
	cfg *config.Config,
	marketAPI domrepo.MarketAPI,
	cacheSvc cache.Service,
	broker *stream.Broker,
	log *applogger.Logger,
) *usecase.StatsUseCase {
	return usecase.NewStatsUseCase(marketAPI, cacheSvc, broker, log, cfg.Cache.StatsTTL)
}

// ProvideExportUseCase creates the export usecase.
func ProvideExportUseCase(market *usecase.MarketDataUseCase) *usecase.ExportUseCase {
	return usecase.NewExportUseCase(market)
}

// ProvideAlertsUseCase creates the anomaly sweep usecase.
func ProvideAlertsUseCase(
	cfg *config.Config,
	market *usecase.MarketDataUseCase,
	detector *anomaly.Detector,
	publisher domrepo.AlertPublisher,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.AlertsUseCase {
	return usecase.NewAlertsUseCase(market, detector, publisher, m, log, cfg.Binance.Symbols)
}

// ProvideViewStore loads the persisted view state.
func ProvideViewStore(cacheSvc cache.Service, log *applogger.Logger) *viewstate.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return viewstate.NewStore(ctx, cacheSvc, log)
}

// ProvideHandler assembles every HTTP route.
func ProvideHandler(
	log *applogger.Logger,
	market *usecase.MarketDataUseCase,
	stats *usecase.StatsUseCase,
	export *usecase.ExportUseCase,
	view *viewstate.Store,
) xhttp.Handler {
	rest := api.NewMarketHandler(log, market, stats, export, view)
	ws := api.NewTickerWSHandler(log, stats, view)
	return api.NewRoutes(rest, ws)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	broker *stream.Broker,
	alerts *usecase.AlertsUseCase,
	stats *usecase.StatsUseCase,
	view *viewstate.Store,
	publisher domrepo.AlertPublisher,
) *server.App {
	return server.New(cfg, log, handler, broker, alerts, stats, view, publisher)
}
