package models

import (
	"encoding/json"
	"strings"
)

// TickerStats is the rolling 24-hour statistics snapshot for a symbol.
type TickerStats struct {
	Symbol             string  `json:"symbol"`
	PriceChange        float64 `json:"priceChange"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	Volume             float64 `json:"volume"`
	Count              int64   `json:"count"`
	OpenPrice          float64 `json:"openPrice"`
	HighPrice          float64 `json:"highPrice"`
	LowPrice           float64 `json:"lowPrice"`
	LastPrice          float64 `json:"lastPrice"`
}

// decimal accepts a JSON string or bare number. The exchange encodes
// decimals as strings; our own responses emit numbers.
type decimal float64

func (d *decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*d = decimal(ParseDecimal(s))
	return nil
}

type tickerStatsWire struct {
	Symbol             string  `json:"symbol"`
	PriceChange        decimal `json:"priceChange"`
	PriceChangePercent decimal `json:"priceChangePercent"`
	Volume             decimal `json:"volume"`
	Count              int64   `json:"count"`
	OpenPrice          decimal `json:"openPrice"`
	HighPrice          decimal `json:"highPrice"`
	LowPrice           decimal `json:"lowPrice"`
	LastPrice          decimal `json:"lastPrice"`
}

// UnmarshalJSON decodes the exchange representation. Malformed decimals
// become NaN rather than failing the whole payload.
func (s *TickerStats) UnmarshalJSON(data []byte) error {
	var w tickerStatsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = TickerStats{
		Symbol:             w.Symbol,
		PriceChange:        float64(w.PriceChange),
		PriceChangePercent: float64(w.PriceChangePercent),
		Volume:             float64(w.Volume),
		Count:              w.Count,
		OpenPrice:          float64(w.OpenPrice),
		HighPrice:          float64(w.HighPrice),
		LowPrice:           float64(w.LowPrice),
		LastPrice:          float64(w.LastPrice),
	}
	return nil
}

// ApplyUpdate merges a live ticker push into the snapshot. Only the fields
// the stream carries are touched; last message wins per field.
func (s *TickerStats) ApplyUpdate(u *TickerUpdate) {
	s.LastPrice = u.Price
	s.PriceChangePercent = u.PriceChangePercent
	s.Volume = u.Volume
}

// TickerUpdate is one inbound message from a <symbol>@ticker stream.
type TickerUpdate struct {
	Symbol             string  `json:"symbol"`
	Price              float64 `json:"price"`
	PriceChangePercent float64 `json:"priceChange"`
	Volume             float64 `json:"volume"`
}
