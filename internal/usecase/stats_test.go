package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
	"CandleScope/internal/stream"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"
)

type scriptedStream struct {
	updates chan *models.TickerUpdate
	errs    chan error
	once    sync.Once
}

func (s *scriptedStream) Read(ctx context.Context) (<-chan *models.TickerUpdate, <-chan error) {
	return s.updates, s.errs
}

func (s *scriptedStream) Close() error {
	s.once.Do(func() { close(s.updates) })
	return nil
}

type scriptedDialer struct {
	mu      sync.Mutex
	streams map[string]*scriptedStream
}

func (d *scriptedDialer) OpenTickerStream(ctx context.Context, symbol string) (drepo.TickerStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &scriptedStream{
		updates: make(chan *models.TickerUpdate, 16),
		errs:    make(chan error, 1),
	}
	d.streams[symbol] = s
	return s, nil
}

func (d *scriptedDialer) stream(t *testing.T, symbol string) *scriptedStream {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		d.mu.Lock()
		s := d.streams[symbol]
		d.mu.Unlock()
		if s != nil {
			return s
		}
		select {
		case <-deadline:
			t.Fatalf("stream for %s never opened", symbol)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func testStatsUC(t *testing.T, api *fakeAPI) (*StatsUseCase, *scriptedDialer) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	dialer := &scriptedDialer{streams: make(map[string]*scriptedStream)}
	broker := stream.NewBroker(dialer, log, noopUCMetrics{})
	t.Cleanup(broker.Close)
	return NewStatsUseCase(api, cache.NewMemoryCache(), broker, log, 30*time.Second), dialer
}

type noopUCMetrics struct{}

func (noopUCMetrics) RecordFetch(string, string)      {}
func (noopUCMetrics) RecordError(string)              {}
func (noopUCMetrics) RecordLastPrice(string, float64) {}
func (noopUCMetrics) RecordAnomaly(string, string)    {}
func (noopUCMetrics) RecordLatency(string, float64)   {}

func TestGet24hCaches(t *testing.T) {
	api := &fakeAPI{}
	uc, _ := testStatsUC(t, api)
	ctx := context.Background()

	first, err := uc.Get24h(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if first.LastPrice != 42800 {
		t.Errorf("last price = %v", first.LastPrice)
	}

	second, err := uc.Get24h(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if second.LastPrice != first.LastPrice {
		t.Errorf("cached snapshot diverged")
	}
}

func TestLiveMergesLastWins(t *testing.T) {
	api := &fakeAPI{}
	uc, dialer := testStatsUC(t, api)
	ctx := context.Background()

	live, err := uc.Live(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	defer live.Close()

	if got := live.Current(); got.LastPrice != 42800 {
		t.Fatalf("initial snapshot price = %v", got.LastPrice)
	}

	up := dialer.stream(t, "BTCUSDT")
	up.updates <- &models.TickerUpdate{Symbol: "BTCUSDT", Price: 43000, PriceChangePercent: 1.2, Volume: 99}
	up.updates <- &models.TickerUpdate{Symbol: "BTCUSDT", Price: 43100, PriceChangePercent: 1.3, Volume: 100}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var snap models.TickerStats
	for i := 0; i < 2; i++ {
		var ok bool
		snap, ok = live.Next(waitCtx)
		if !ok {
			t.Fatal("live view ended early")
		}
	}
	if snap.LastPrice != 43100 || snap.PriceChangePercent != 1.3 || snap.Volume != 100 {
		t.Errorf("merged snapshot = %+v", snap)
	}
	if snap.Symbol != "BTCUSDT" {
		t.Errorf("symbol overwritten: %q", snap.Symbol)
	}
}
