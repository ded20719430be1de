// Package demo is a deterministic offline replacement for the exchange:
// synthetic klines and ticker data derived from per-symbol base prices, so
// the dashboard works without network access.
package demo

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
)

var basePrices = map[string]float64{
	"BTCUSDT":  45000,
	"ETHUSDT":  3000,
	"ADAUSDT":  0.5,
	"SOLUSDT":  100,
	"DOTUSDT":  8,
	"LINKUSDT": 15,
}

const fallbackBasePrice = 1000

// BasePrice returns the anchor price a symbol's synthetic walk starts from.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return fallbackBasePrice
}

// Source generates market data. The same symbol and month always produce
// the same candles, so cached and fresh responses agree.
type Source struct {
	now func() time.Time
}

func NewSource() *Source {
	return &Source{now: time.Now}
}

func seedFor(symbol string, year int, month time.Month) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte{byte(year >> 8), byte(year), byte(month)})
	return int64(h.Sum64())
}

func dec(v float64) string { return strconv.FormatFloat(v, 'f', 8, 64) }

// monthKlines walks one calendar month day by day. The walk chains closes
// like a real series; future days of the current month are omitted.
func (s *Source) monthKlines(symbol string, year int, month time.Month) []models.RawKline {
	rng := rand.New(rand.NewSource(seedFor(symbol, year, month)))
	prevClose := BasePrice(symbol)

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	now := s.now().UTC()

	out := make([]models.RawKline, 0, daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		open := prevClose * (1 + (rng.Float64()-0.5)*0.01)
		span := 0.01 + rng.Float64()*0.08
		change := (rng.Float64() - 0.5) * span * 2
		close := open * (1 + change)
		high := max(open, close) * (1 + rng.Float64()*0.02)
		low := min(open, close) * (1 - rng.Float64()*0.02)
		volume := 1_000_000 + rng.Float64()*10_000_000
		prevClose = close

		openTime := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if openTime.After(now) {
			break
		}
		out = append(out, models.RawKline{
			OpenTime:       openTime.UnixMilli(),
			Open:           dec(open),
			High:           dec(high),
			Low:            dec(low),
			Close:          dec(close),
			Volume:         dec(volume),
			CloseTime:      openTime.AddDate(0, 0, 1).UnixMilli() - 1,
			QuoteVolume:    dec(volume * close),
			NumberOfTrades: 1000 + rng.Int63n(200_000),
			TakerBuyBase:   dec(volume / 2),
			TakerBuyQuote:  dec(volume * close / 2),
		})
	}
	return out
}

func (s *Source) MonthlyKlines(_ context.Context, symbol string, year int, month time.Month) ([]models.RawKline, error) {
	return s.monthKlines(symbol, year, month), nil
}

func (s *Source) RecentKlines(ctx context.Context, symbol string, limit int) ([]models.RawKline, error) {
	// Assemble backwards month by month until enough days accumulate.
	now := s.now().UTC()
	year, month := now.Year(), now.Month()
	var out []models.RawKline
	for len(out) < limit {
		ks := s.monthKlines(symbol, year, month)
		out = append(ks, out...)
		if month == time.January {
			year, month = year-1, time.December
		} else {
			month--
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Source) Ticker24h(ctx context.Context, symbol string) (*models.TickerStats, error) {
	ks, _ := s.RecentKlines(ctx, symbol, 2)
	if len(ks) == 0 {
		return &models.TickerStats{Symbol: symbol, LastPrice: BasePrice(symbol)}, nil
	}
	last := ks[len(ks)-1]
	open := models.ParseDecimal(last.Open)
	close := models.ParseDecimal(last.Close)
	return &models.TickerStats{
		Symbol:             symbol,
		PriceChange:        close - open,
		PriceChangePercent: (close - open) / open * 100,
		Volume:             models.ParseDecimal(last.Volume),
		Count:              last.NumberOfTrades,
		OpenPrice:          open,
		HighPrice:          models.ParseDecimal(last.High),
		LowPrice:           models.ParseDecimal(last.Low),
		LastPrice:          close,
	}, nil
}

func (s *Source) AvgPrice(ctx context.Context, symbol string) (*models.AvgPrice, error) {
	stats, _ := s.Ticker24h(ctx, symbol)
	return &models.AvgPrice{Mins: 5, Price: dec(stats.LastPrice)}, nil
}

// OpenTickerStream emits a synthetic ticker every second, a small random
// walk around the latest close. Satisfies the stream dialer so the relay
// endpoint works offline too.
func (s *Source) OpenTickerStream(ctx context.Context, symbol string) (drepo.TickerStream, error) {
	stats, _ := s.Ticker24h(ctx, symbol)
	st := &tickStream{
		symbol:  symbol,
		price:   stats.LastPrice,
		volume:  stats.Volume,
		updates: make(chan *models.TickerUpdate, 8),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go st.run()
	return st, nil
}

type tickStream struct {
	symbol  string
	price   float64
	volume  float64
	updates chan *models.TickerUpdate
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

func (t *tickStream) run() {
	rng := rand.New(rand.NewSource(seedFor(t.symbol, 0, 0)))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	base := t.price
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.price *= 1 + (rng.Float64()-0.5)*0.002
			t.volume += rng.Float64() * 10
			u := &models.TickerUpdate{
				Symbol:             t.symbol,
				Price:              t.price,
				PriceChangePercent: (t.price - base) / base * 100,
				Volume:             t.volume,
			}
			select {
			case t.updates <- u:
			default:
			}
		}
	}
}

func (t *tickStream) Read(ctx context.Context) (<-chan *models.TickerUpdate, <-chan error) {
	return t.updates, t.errs
}

func (t *tickStream) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}
