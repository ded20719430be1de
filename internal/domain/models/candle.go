package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// RawKline is one exchange-reported candlestick as delivered on the wire:
// a positional array of mixed numbers and decimal strings.
//
//	[openTime, open, high, low, close, volume, closeTime,
//	 quoteVolume, numberOfTrades, takerBuyBase, takerBuyQuote, ignore]
type RawKline struct {
	OpenTime       int64
	Open           string
	High           string
	Low            string
	Close          string
	Volume         string
	CloseTime      int64
	QuoteVolume    string
	NumberOfTrades int64
	TakerBuyBase   string
	TakerBuyQuote  string
}

// UnmarshalJSON decodes the positional tuple format.
func (k *RawKline) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("kline tuple: %w", err)
	}
	if len(tuple) < 11 {
		return fmt.Errorf("kline tuple: expected 11 fields, got %d", len(tuple))
	}

	fields := []struct {
		i int
		v interface{}
	}{
		{0, &k.OpenTime},
		{1, &k.Open},
		{2, &k.High},
		{3, &k.Low},
		{4, &k.Close},
		{5, &k.Volume},
		{6, &k.CloseTime},
		{7, &k.QuoteVolume},
		{8, &k.NumberOfTrades},
		{9, &k.TakerBuyBase},
		{10, &k.TakerBuyQuote},
	}
	for _, f := range fields {
		if err := json.Unmarshal(tuple[f.i], f.v); err != nil {
			return fmt.Errorf("kline field %d: %w", f.i, err)
		}
	}
	return nil
}

// ParseDecimal converts a wire decimal string to float64. Malformed input
// yields NaN rather than an error; consumers treat NaN as invalid data.
func ParseDecimal(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// DayRecord is one day of derived market data for a symbol.
type DayRecord struct {
	Date           string  `json:"date"` // YYYY-MM-DD, UTC
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Close          float64 `json:"close"`
	Volume         float64 `json:"volume"`
	Volatility     float64 `json:"volatility"`
	PriceChange    float64 `json:"priceChange"`
	Timestamp      int64   `json:"timestamp"` // open time, epoch ms
	NumberOfTrades int64   `json:"numberOfTrades"`
	QuoteVolume    float64 `json:"quoteAssetVolume"`
}

type dayRecordWire struct {
	Date           string   `json:"date"`
	Open           *float64 `json:"open"`
	High           *float64 `json:"high"`
	Low            *float64 `json:"low"`
	Close          *float64 `json:"close"`
	Volume         *float64 `json:"volume"`
	Volatility     *float64 `json:"volatility"`
	PriceChange    *float64 `json:"priceChange"`
	Timestamp      int64    `json:"timestamp"`
	NumberOfTrades int64    `json:"numberOfTrades"`
	QuoteVolume    *float64 `json:"quoteAssetVolume"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON renders non-finite values as null. encoding/json refuses NaN
// outright, and one malformed wire decimal must not fail a whole month.
func (r DayRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(dayRecordWire{
		Date:           r.Date,
		Open:           finitePtr(r.Open),
		High:           finitePtr(r.High),
		Low:            finitePtr(r.Low),
		Close:          finitePtr(r.Close),
		Volume:         finitePtr(r.Volume),
		Volatility:     finitePtr(r.Volatility),
		PriceChange:    finitePtr(r.PriceChange),
		Timestamp:      r.Timestamp,
		NumberOfTrades: r.NumberOfTrades,
		QuoteVolume:    finitePtr(r.QuoteVolume),
	})
}

// UnmarshalJSON maps null back to NaN so a cache round trip preserves the
// invalid-data marker.
func (r *DayRecord) UnmarshalJSON(data []byte) error {
	var w dayRecordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = DayRecord{
		Date:           w.Date,
		Open:           floatOrNaN(w.Open),
		High:           floatOrNaN(w.High),
		Low:            floatOrNaN(w.Low),
		Close:          floatOrNaN(w.Close),
		Volume:         floatOrNaN(w.Volume),
		Volatility:     floatOrNaN(w.Volatility),
		PriceChange:    floatOrNaN(w.PriceChange),
		Timestamp:      w.Timestamp,
		NumberOfTrades: w.NumberOfTrades,
		QuoteVolume:    floatOrNaN(w.QuoteVolume),
	}
	return nil
}

// Day returns the record's calendar date at UTC midnight.
func (r *DayRecord) Day() time.Time {
	t, _ := time.Parse("2006-01-02", r.Date)
	return t
}

// MonthlyDataset maps date keys to day records for exactly one calendar
// month of one symbol. It is built once per fetch and never mutated; a new
// fetch replaces the whole value.
type MonthlyDataset struct {
	Symbol string               `json:"symbol"`
	Year   int                  `json:"year"`
	Month  time.Month           `json:"month"`
	Days   map[string]DayRecord `json:"days"`
}

// Get looks up the record for a date key.
func (d *MonthlyDataset) Get(dateKey string) (DayRecord, bool) {
	rec, ok := d.Days[dateKey]
	return rec, ok
}

// AvgPrice is the /avgPrice response.
type AvgPrice struct {
	Mins  int    `json:"mins"`
	Price string `json:"price"`
}
