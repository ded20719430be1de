package usecase

import (
	"context"
	"fmt"
	"time"

	"CandleScope/internal/domain/models"
	domrepo "CandleScope/internal/domain/repository"
	"CandleScope/internal/stream"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// StatsUseCase serves 24-hour ticker statistics, optionally kept live by
// the stream broker.
type StatsUseCase struct {
	api    domrepo.MarketAPI
	cache  cache.Service
	broker *stream.Broker
	log    *logger.Logger

	statsTTL time.Duration
	group    singleflight.Group
}

func NewStatsUseCase(
	api domrepo.MarketAPI,
	cacheSvc cache.Service,
	broker *stream.Broker,
	log *logger.Logger,
	statsTTL time.Duration,
) *StatsUseCase {
	return &StatsUseCase{
		api:      api,
		cache:    cacheSvc,
		broker:   broker,
		log:      log,
		statsTTL: statsTTL,
	}
}

func statsKey(symbol string) string    { return "stats24h:" + symbol }
func avgPriceKey(symbol string) string { return "avgprice:" + symbol }

// Get24h returns the rolling 24-hour snapshot, cached briefly.
func (uc *StatsUseCase) Get24h(ctx context.Context, symbol string) (*models.TickerStats, error) {
	key := statsKey(symbol)

	var cached models.TickerStats
	if err := uc.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		stats, err := uc.api.Ticker24h(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if err := uc.cache.Set(ctx, key, stats, uc.statsTTL); err != nil {
			uc.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
		}
		return stats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats 24h %s: %w", symbol, err)
	}
	return v.(*models.TickerStats), nil
}

// AvgPrice returns the exchange's current average price, cached briefly.
func (uc *StatsUseCase) AvgPrice(ctx context.Context, symbol string) (*models.AvgPrice, error) {
	key := avgPriceKey(symbol)

	var cached models.AvgPrice
	if err := uc.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		avg, err := uc.api.AvgPrice(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if err := uc.cache.Set(ctx, key, avg, uc.statsTTL); err != nil {
			uc.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
		}
		return avg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("avg price %s: %w", symbol, err)
	}
	return v.(*models.AvgPrice), nil
}

// LiveStats is a snapshot kept current by a stream subscription. Snapshots
// returned by Next are merged copies; the latest stream message wins per
// field.
type LiveStats struct {
	sub      *stream.Subscription
	snapshot models.TickerStats
}

// Live opens a merged live view for one symbol: the REST snapshot first,
// then stream updates folded in. Close it when the symbol changes or the
// consumer goes away.
func (uc *StatsUseCase) Live(ctx context.Context, symbol string) (*LiveStats, error) {
	base, err := uc.Get24h(ctx, symbol)
	if err != nil {
		return nil, err
	}
	sub, err := uc.broker.Subscribe(symbol)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	return &LiveStats{sub: sub, snapshot: *base}, nil
}

// Current returns the latest merged snapshot.
func (l *LiveStats) Current() models.TickerStats { return l.snapshot }

// Next blocks until an update arrives, merges it, and returns the new
// snapshot. ok is false once the subscription or context ends.
func (l *LiveStats) Next(ctx context.Context) (models.TickerStats, bool) {
	select {
	case <-ctx.Done():
		return l.snapshot, false
	case u, ok := <-l.sub.C:
		if !ok {
			return l.snapshot, false
		}
		l.snapshot.ApplyUpdate(u)
		return l.snapshot, true
	}
}

// Close detaches the underlying subscription.
func (l *LiveStats) Close() { l.sub.Close() }
