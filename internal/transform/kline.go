// Package transform derives per-day statistics from raw exchange klines.
package transform

import (
	"time"

	"CandleScope/internal/domain/models"
	"CandleScope/pkg/util"
)

// FromRawKline converts one raw kline tuple into a derived day record.
//
// Price and volume fields are parsed from their wire decimal strings; a
// malformed field becomes NaN and flows through, it is not rejected here.
// Volatility is (high-low)/close, price change is (close-open)/open, and the
// date key is the UTC calendar date of the open time.
func FromRawKline(k models.RawKline) models.DayRecord {
	open := models.ParseDecimal(k.Open)
	high := models.ParseDecimal(k.High)
	low := models.ParseDecimal(k.Low)
	close := models.ParseDecimal(k.Close)
	volume := models.ParseDecimal(k.Volume)

	return models.DayRecord{
		Date:           util.DayKeyFromMillis(k.OpenTime),
		Open:           open,
		High:           high,
		Low:            low,
		Close:          close,
		Volume:         volume,
		Volatility:     (high - low) / close,
		PriceChange:    (close - open) / open,
		Timestamp:      k.OpenTime,
		NumberOfTrades: k.NumberOfTrades,
		QuoteVolume:    models.ParseDecimal(k.QuoteVolume),
	}
}

// FromRawKlines converts a kline slice preserving order.
func FromRawKlines(klines []models.RawKline) []models.DayRecord {
	records := make([]models.DayRecord, 0, len(klines))
	for _, k := range klines {
		records = append(records, FromRawKline(k))
	}
	return records
}

// BuildMonthlyDataset maps a month's klines into a date-keyed dataset.
func BuildMonthlyDataset(symbol string, year int, month time.Month, klines []models.RawKline) *models.MonthlyDataset {
	days := make(map[string]models.DayRecord, len(klines))
	for _, k := range klines {
		rec := FromRawKline(k)
		days[rec.Date] = rec
	}
	return &models.MonthlyDataset{
		Symbol: symbol,
		Year:   year,
		Month:  month,
		Days:   days,
	}
}
