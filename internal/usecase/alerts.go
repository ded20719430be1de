package usecase

import (
	"context"
	"sort"
	"time"

	"CandleScope/internal/anomaly"
	"CandleScope/internal/domain/models"
	domrepo "CandleScope/internal/domain/repository"
	"CandleScope/pkg/logger"
)

// AlertsUseCase sweeps the current month of each tracked symbol and ships
// error-severity findings to the alert publisher. Info and warning findings
// stay in the calendar payloads only.
type AlertsUseCase struct {
	market    *MarketDataUseCase
	detector  *anomaly.Detector
	publisher domrepo.AlertPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	symbols   []string
}

func NewAlertsUseCase(
	market *MarketDataUseCase,
	detector *anomaly.Detector,
	publisher domrepo.AlertPublisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	symbols []string,
) *AlertsUseCase {
	return &AlertsUseCase{
		market:    market,
		detector:  detector,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		symbols:   symbols,
	}
}

// Sweep inspects the current UTC month for every tracked symbol. A failing
// symbol is logged and skipped; the sweep continues.
func (uc *AlertsUseCase) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	for _, symbol := range uc.symbols {
		uc.sweepSymbol(ctx, symbol, now.Year(), now.Month())
	}
}

func (uc *AlertsUseCase) sweepSymbol(ctx context.Context, symbol string, year int, month time.Month) {
	ds, err := uc.market.getMonth(ctx, symbol, year, month)
	if err != nil {
		uc.log.Warn("alert sweep fetch failed",
			logger.String("symbol", symbol),
			logger.Error(err),
		)
		return
	}

	byDay := uc.detector.InspectMonth(ds)
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		var severe []models.Finding
		for _, f := range byDay[day] {
			uc.metrics.RecordAnomaly(string(f.Kind), string(f.Severity))
			if f.Severity == models.SeverityError {
				severe = append(severe, f)
			}
		}
		if len(severe) == 0 {
			continue
		}
		if err := uc.publisher.PublishFindings(ctx, symbol, day, severe); err != nil {
			uc.log.Error("alert publish failed",
				logger.String("symbol", symbol),
				logger.String("date", day),
				logger.Error(err),
			)
		}
	}
}
