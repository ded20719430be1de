package repository

import (
	"context"
	"time"

	"CandleScope/internal/domain/models"
)

// MarketAPI is the read-only exchange REST surface the dashboard consumes.
type MarketAPI interface {
	MonthlyKlines(ctx context.Context, symbol string, year int, month time.Month) ([]models.RawKline, error)
	RecentKlines(ctx context.Context, symbol string, limit int) ([]models.RawKline, error)
	Ticker24h(ctx context.Context, symbol string) (*models.TickerStats, error)
	AvgPrice(ctx context.Context, symbol string) (*models.AvgPrice, error)
}

// TickerStream is one live ticker subscription for a single symbol. It is an
// explicit, cancellable producer: opened on subscribe, closed by the consumer
// when the symbol changes or the subscribing view goes away.
type TickerStream interface {
	Read(ctx context.Context) (<-chan *models.TickerUpdate, <-chan error)
	Close() error
}

// StreamDialer opens ticker streams.
type StreamDialer interface {
	OpenTickerStream(ctx context.Context, symbol string) (TickerStream, error)
}

// AlertPublisher ships error-severity anomaly findings to an external sink.
type AlertPublisher interface {
	PublishFindings(ctx context.Context, symbol, dateKey string, findings []models.Finding) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordFetch(endpoint, result string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordAnomaly(kind, severity string)
	RecordLatency(op string, seconds float64)
}
