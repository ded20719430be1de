package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"CandleScope/internal/anomaly"
	"CandleScope/internal/domain/models"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events map[string][]models.Finding // "symbol/date" -> findings
}

func (p *capturingPublisher) PublishFindings(ctx context.Context, symbol, dateKey string, findings []models.Finding) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]models.Finding)
	}
	p.events[symbol+"/"+dateKey] = findings
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

// crashAPI serves one month containing a flash-crash day and a clean day.
type crashAPI struct {
	fakeAPI
}

func (c *crashAPI) MonthlyKlines(ctx context.Context, symbol string, year int, month time.Month) ([]models.RawKline, error) {
	clean := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
	crash := time.Date(year, month, 16, 0, 0, 0, 0, time.UTC)
	return []models.RawKline{
		rawKline(clean.UnixMilli(), "42500", "43200", "42100", "42800", "2500000"),
		rawKline(crash.UnixMilli(), "47200", "47300", "15000", "46800", "3000000"),
	}, nil
}

func TestSweepPublishesOnlyErrorFindings(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	api := &crashAPI{}
	market := NewMarketDataUseCase(api, cache.NewMemoryCache(), anomaly.NewDetector(), log, time.Minute, time.Minute)
	pub := &capturingPublisher{}
	uc := NewAlertsUseCase(market, anomaly.NewDetector(), pub, noopUCMetrics{}, log, []string{"BTCUSDT"})

	uc.Sweep(context.Background())

	now := time.Now().UTC()
	crashKey := "BTCUSDT/" + time.Date(now.Year(), now.Month(), 16, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	cleanKey := "BTCUSDT/" + time.Date(now.Year(), now.Month(), 15, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

	pub.mu.Lock()
	defer pub.mu.Unlock()

	findings, ok := pub.events[crashKey]
	if !ok {
		t.Fatalf("no alert for crash day; events = %v", pub.events)
	}
	for _, f := range findings {
		if f.Severity != models.SeverityError {
			t.Errorf("published non-error finding %s/%s", f.Kind, f.Severity)
		}
	}

	if _, ok := pub.events[cleanKey]; ok {
		t.Error("clean day produced an alert")
	}
}
