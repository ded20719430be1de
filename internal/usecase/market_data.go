package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CandleScope/internal/anomaly"
	"CandleScope/internal/classify"
	"CandleScope/internal/domain/models"
	domrepo "CandleScope/internal/domain/repository"
	"CandleScope/internal/transform"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"
	"CandleScope/pkg/util"

	"golang.org/x/sync/singleflight"
)

// MarketDataUseCase serves calendar and history views from the exchange,
// fronted by a TTL cache. Identical concurrent fetches are collapsed into
// one upstream call; results from fetches that were superseded by an
// invalidation are discarded instead of written back.
type MarketDataUseCase struct {
	api      domrepo.MarketAPI
	cache    cache.Service
	detector *anomaly.Detector
	log      *logger.Logger

	monthlyTTL    time.Duration
	historicalTTL time.Duration

	group singleflight.Group

	genMu sync.Mutex
	gens  map[string]uint64

	now func() time.Time
}

func NewMarketDataUseCase(
	api domrepo.MarketAPI,
	cacheSvc cache.Service,
	detector *anomaly.Detector,
	log *logger.Logger,
	monthlyTTL, historicalTTL time.Duration,
) *MarketDataUseCase {
	return &MarketDataUseCase{
		api:           api,
		cache:         cacheSvc,
		detector:      detector,
		log:           log,
		monthlyTTL:    monthlyTTL,
		historicalTTL: historicalTTL,
		gens:          make(map[string]uint64),
		now:           time.Now,
	}
}

func monthKey(symbol string, year int, month time.Month) string {
	return fmt.Sprintf("month:%s:%d:%d", symbol, year, int(month))
}

func historyKey(symbol string, days int) string {
	return fmt.Sprintf("history:%s:%d", symbol, days)
}

// DayCell is one calendar day prepared for display.
type DayCell struct {
	Record         models.DayRecord        `json:"record"`
	Classification classify.Classification `json:"classification"`
	Anomalies      []models.Finding        `json:"anomalies,omitempty"`
	Tooltip        Tooltip                 `json:"tooltip"`
}

// Tooltip is the hover payload for one day.
type Tooltip struct {
	Date        string  `json:"date"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	Volatility  float64 `json:"volatility"`
	PriceChange float64 `json:"priceChange"`
	Trades      int64   `json:"trades"`
}

// CalendarResult is a month of prepared day cells.
type CalendarResult struct {
	Symbol string             `json:"symbol"`
	Year   int                `json:"year"`
	Month  int                `json:"month"`
	Metric models.Metric      `json:"metric"`
	Days   map[string]DayCell `json:"days"`
}

// CalendarParams selects one symbol-month and its display settings.
type CalendarParams struct {
	Symbol string
	Year   int
	Month  time.Month
	Metric models.Metric
	Scheme models.ColorScheme
}

// GetCalendar returns the prepared calendar for one symbol and month.
func (uc *MarketDataUseCase) GetCalendar(ctx context.Context, p CalendarParams) (*CalendarResult, error) {
	ds, err := uc.getMonth(ctx, p.Symbol, p.Year, p.Month)
	if err != nil {
		return nil, err
	}
	return uc.buildCalendar(ds, p.Metric, p.Scheme), nil
}

// MultiCalendarParams selects several symbols over the same month.
type MultiCalendarParams struct {
	Symbols []string
	Year    int
	Month   time.Month
	Metric  models.Metric
	Scheme  models.ColorScheme
}

// GetMultiCalendar returns calendars for several symbols over the same
// month. Symbols that fail to load are reported alongside the successes so
// one bad symbol does not sink the whole comparison view.
func (uc *MarketDataUseCase) GetMultiCalendar(ctx context.Context, p MultiCalendarParams) (*MultiCalendarResult, error) {
	out := &MultiCalendarResult{
		Calendars: make(map[string]*CalendarResult, len(p.Symbols)),
		Errors:    make(map[string]string),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, symbol := range p.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			ds, err := uc.getMonth(ctx, symbol, p.Year, p.Month)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Errors[symbol] = err.Error()
				return
			}
			out.Calendars[symbol] = uc.buildCalendar(ds, p.Metric, p.Scheme)
		}(symbol)
	}
	wg.Wait()

	if len(out.Calendars) == 0 && len(out.Errors) > 0 {
		for symbol, msg := range out.Errors {
			return nil, fmt.Errorf("%s: %s", symbol, msg)
		}
	}
	return out, nil
}

// MultiCalendarResult holds per-symbol calendars plus per-symbol failures.
type MultiCalendarResult struct {
	Calendars map[string]*CalendarResult `json:"calendars"`
	Errors    map[string]string          `json:"errors,omitempty"`
}

// HistoryResult is a chronologically ordered run of recent day records.
type HistoryResult struct {
	Symbol string             `json:"symbol"`
	Days   []models.DayRecord `json:"days"`
}

// GetHistory returns the last n daily records, oldest first.
func (uc *MarketDataUseCase) GetHistory(ctx context.Context, symbol string, days int) (*HistoryResult, error) {
	key := historyKey(symbol, days)

	var cached HistoryResult
	if err := uc.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		gen := uc.generation(key)

		klines, err := uc.api.RecentKlines(ctx, symbol, days)
		if err != nil {
			return nil, err
		}
		records := transform.FromRawKlines(klines)
		sort.Slice(records, func(i, j int) bool {
			return records[i].Timestamp < records[j].Timestamp
		})
		result := &HistoryResult{Symbol: symbol, Days: records}

		uc.storeIfCurrent(ctx, key, gen, result, uc.historicalTTL)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*HistoryResult), nil
}

// PrefetchAdjacent warms the cache for the months either side of the one on
// screen. Failures degrade silently; prefetching is best effort.
func (uc *MarketDataUseCase) PrefetchAdjacent(symbol string, year int, month time.Month) {
	for _, delta := range []int{-1, 1} {
		y, m := util.AddMonths(year, month, delta)
		go func(y int, m time.Month) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := uc.getMonth(ctx, symbol, y, m); err != nil {
				uc.log.Debug("prefetch skipped",
					logger.String("symbol", symbol),
					logger.Int("year", y),
					logger.Int("month", int(m)),
					logger.Error(err),
				)
			}
		}(y, m)
	}
}

// Invalidate drops cached views for one symbol, or for every symbol when
// symbol is empty. In-flight fetches started before the call will not
// repopulate the cache.
func (uc *MarketDataUseCase) Invalidate(ctx context.Context, symbol string) error {
	uc.genMu.Lock()
	for key := range uc.gens {
		uc.gens[key]++
	}
	uc.genMu.Unlock()

	patterns := []string{"month:*", "history:*", "stats24h:*"}
	if symbol != "" {
		patterns = []string{
			fmt.Sprintf("month:%s:*", symbol),
			fmt.Sprintf("history:%s:*", symbol),
			fmt.Sprintf("stats24h:%s", symbol),
		}
	}
	for _, p := range patterns {
		if err := uc.cache.DeleteByPattern(ctx, p); err != nil {
			return fmt.Errorf("invalidate %s: %w", p, err)
		}
	}
	uc.log.Info("cache invalidated", logger.String("symbol", symbol))
	return nil
}

func (uc *MarketDataUseCase) getMonth(ctx context.Context, symbol string, year int, month time.Month) (*models.MonthlyDataset, error) {
	key := monthKey(symbol, year, month)

	var cached models.MonthlyDataset
	if err := uc.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		gen := uc.generation(key)

		klines, err := uc.api.MonthlyKlines(ctx, symbol, year, month)
		if err != nil {
			return nil, err
		}
		ds := transform.BuildMonthlyDataset(symbol, year, month, klines)

		uc.storeIfCurrent(ctx, key, gen, ds, uc.monthlyTTL)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.MonthlyDataset), nil
}

func (uc *MarketDataUseCase) buildCalendar(ds *models.MonthlyDataset, metric models.Metric, scheme models.ColorScheme) *CalendarResult {
	out := &CalendarResult{
		Symbol: ds.Symbol,
		Year:   ds.Year,
		Month:  int(ds.Month),
		Metric: metric,
		Days:   make(map[string]DayCell, len(ds.Days)),
	}
	for day, rec := range ds.Days {
		out.Days[day] = DayCell{
			Record:         rec,
			Classification: classify.Classify(rec, metric, scheme),
			Anomalies:      uc.detector.Inspect(rec),
			Tooltip: Tooltip{
				Date:        rec.Date,
				Open:        rec.Open,
				High:        rec.High,
				Low:         rec.Low,
				Close:       rec.Close,
				Volume:      rec.Volume,
				Volatility:  rec.Volatility,
				PriceChange: rec.PriceChange,
				Trades:      rec.NumberOfTrades,
			},
		}
	}

	// Elapsed days the exchange reported nothing for still get a cell, so
	// the calendar can badge them instead of leaving a hole.
	first := time.Date(ds.Year, ds.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	today := uc.now().UTC()
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if d.After(today) {
			break
		}
		key := util.DayKey(d)
		if _, ok := out.Days[key]; ok {
			continue
		}
		rec := models.DayRecord{Date: key, Timestamp: d.UnixMilli()}
		out.Days[key] = DayCell{
			Record:    rec,
			Anomalies: uc.detector.Inspect(rec),
			Tooltip:   Tooltip{Date: key},
		}
	}
	return out
}

// generation snapshots the invalidation counter for a key before a fetch.
// The key is registered so a later invalidation can supersede the fetch.
func (uc *MarketDataUseCase) generation(key string) uint64 {
	uc.genMu.Lock()
	defer uc.genMu.Unlock()
	if _, ok := uc.gens[key]; !ok {
		uc.gens[key] = 0
	}
	return uc.gens[key]
}

// storeIfCurrent writes a fetched value back unless the key was invalidated
// while the fetch was in flight.
func (uc *MarketDataUseCase) storeIfCurrent(ctx context.Context, key string, gen uint64, value interface{}, ttl time.Duration) {
	uc.genMu.Lock()
	current := uc.gens[key]
	uc.genMu.Unlock()

	if current != gen {
		uc.log.Debug("stale fetch discarded", logger.String("key", key))
		return
	}
	if err := uc.cache.Set(ctx, key, value, ttl); err != nil {
		uc.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
	}
}
