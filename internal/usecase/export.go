package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"CandleScope/internal/domain/models"
	httpx "CandleScope/pkg/http"
)

// ExportUseCase renders a month of market data for download. Only CSV is
// rendered in-process; image and document formats belong to external
// renderers and are rejected with a descriptive error.
type ExportUseCase struct {
	market *MarketDataUseCase
}

func NewExportUseCase(market *MarketDataUseCase) *ExportUseCase {
	return &ExportUseCase{market: market}
}

// ExportResult is the rendered artifact plus transport metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

var csvHeader = []string{
	"date", "open", "high", "low", "close",
	"volume", "quote_volume", "trades", "volatility", "price_change",
}

// Export renders the requested month. Supported: csv.
func (uc *ExportUseCase) Export(ctx context.Context, req models.ExportRequest) (*ExportResult, error) {
	switch req.Format {
	case "csv":
	case "pdf", "png":
		return nil, httpx.BadRequestErrorf("%s export requires an external renderer; use csv", req.Format)
	default:
		return nil, httpx.BadRequestErrorf("unsupported export format %q", req.Format)
	}

	ds, err := uc.market.getMonth(ctx, req.Symbol, req.Year, time.Month(req.Month))
	if err != nil {
		return nil, err
	}

	days := make([]string, 0, len(ds.Days))
	for day := range ds.Days {
		days = append(days, day)
	}
	sort.Strings(days)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, day := range days {
		rec := ds.Days[day]
		row := []string{
			rec.Date,
			formatPrice(rec.Open),
			formatPrice(rec.High),
			formatPrice(rec.Low),
			formatPrice(rec.Close),
			formatPrice(rec.Volume),
			formatPrice(rec.QuoteVolume),
			strconv.FormatInt(rec.NumberOfTrades, 10),
			formatRatio(rec.Volatility),
			formatRatio(rec.PriceChange),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", day, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("%s-%04d-%02d.csv", ds.Symbol, ds.Year, ds.Month),
		ContentType: "text/csv",
		Data:        buf.Bytes(),
	}, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
