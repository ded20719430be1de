// Package viewstate holds the server-side dashboard view state.
package viewstate

import (
	"context"
	"sync"
	"time"

	"CandleScope/internal/domain/models"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"
	"CandleScope/pkg/util"
)

// StoreKey is the fixed persistence key for the durable slice of the state.
const StoreKey = "market-store"

// Defaults restored by ResetFilters.
const (
	DefaultSymbol      = "BTCUSDT"
	DefaultTimeframe   = models.TimeframeDaily
	DefaultMetric      = models.MetricVolatility
	DefaultScheme      = models.SchemeDefault
	DefaultChartHeight = 300
	DefaultRefreshMs   = 30_000
)

// State is the full dashboard view state. Only the fields in persisted are
// durable; everything else resets on restart.
type State struct {
	Symbol         string             `json:"symbol"`
	SelectedDate   string             `json:"selectedDate,omitempty"` // YYYY-MM-DD
	DateRangeStart string             `json:"dateRangeStart,omitempty"`
	DateRangeEnd   string             `json:"dateRangeEnd,omitempty"`
	Year           int                `json:"year"`  // displayed month
	Month          int                `json:"month"` // 1..12
	Timeframe      models.Timeframe   `json:"timeframe"`
	Metric         models.Metric      `json:"metric"`
	ColorScheme    models.ColorScheme `json:"colorScheme"`
	ChartHeight    int                `json:"chartHeight"`
	AutoRefresh    bool               `json:"autoRefresh"`
	RefreshMs      int                `json:"refreshIntervalMs"`
	ExportDialog   bool               `json:"exportDialogOpen"`
	SettingsOpen   bool               `json:"settingsOpen"`
}

// persisted is the durable subset of State.
type persisted struct {
	Symbol      string             `json:"symbol"`
	Timeframe   models.Timeframe   `json:"timeframe"`
	Metric      models.Metric      `json:"metric"`
	ColorScheme models.ColorScheme `json:"colorScheme"`
	ChartHeight int                `json:"chartHeight"`
	AutoRefresh bool               `json:"autoRefresh"`
	RefreshMs   int                `json:"refreshIntervalMs"`
}

// Store owns the view state and its persistence. All mutations go through
// named methods; there is no raw setter.
type Store struct {
	cache cache.Service
	log   *logger.Logger
	now   func() time.Time

	mu    sync.RWMutex
	state State
}

// NewStore builds a store with today's month displayed, then overlays any
// previously persisted settings.
func NewStore(ctx context.Context, cacheSvc cache.Service, log *logger.Logger) *Store {
	s := &Store{
		cache: cacheSvc,
		log:   log,
		now:   time.Now,
	}
	s.state = s.defaultState()

	var p persisted
	if err := cacheSvc.Get(ctx, StoreKey, &p); err == nil {
		s.apply(p)
	} else if err != cache.ErrCacheMiss {
		log.Warn("view state load failed", logger.Error(err))
	}
	return s
}

func (s *Store) defaultState() State {
	now := s.now().UTC()
	return State{
		Symbol:      DefaultSymbol,
		Year:        now.Year(),
		Month:       int(now.Month()),
		Timeframe:   DefaultTimeframe,
		Metric:      DefaultMetric,
		ColorScheme: DefaultScheme,
		ChartHeight: DefaultChartHeight,
		AutoRefresh: true,
		RefreshMs:   DefaultRefreshMs,
	}
}

func (s *Store) apply(p persisted) {
	if p.Symbol != "" {
		s.state.Symbol = p.Symbol
	}
	if models.IsValidTimeframe(p.Timeframe) {
		s.state.Timeframe = p.Timeframe
	}
	if models.IsValidMetric(p.Metric) {
		s.state.Metric = p.Metric
	}
	if models.IsValidColorScheme(p.ColorScheme) {
		s.state.ColorScheme = p.ColorScheme
	}
	if p.ChartHeight > 0 {
		s.state.ChartHeight = p.ChartHeight
	}
	s.state.AutoRefresh = p.AutoRefresh
	if p.RefreshMs > 0 {
		s.state.RefreshMs = p.RefreshMs
	}
}

// Current returns a copy of the state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Patch applies the non-nil fields of the request and persists the durable
// subset. It returns the new state and whether the selected symbol changed,
// so callers can re-point live subscriptions.
func (s *Store) Patch(ctx context.Context, req models.ViewPatchRequest) (State, bool) {
	s.mu.Lock()
	symbolChanged := false

	if req.Symbol != nil && *req.Symbol != "" && *req.Symbol != s.state.Symbol {
		s.state.Symbol = *req.Symbol
		symbolChanged = true
	}
	if req.SelectedDate != nil {
		s.state.SelectedDate = *req.SelectedDate
	}
	if req.DateRangeStart != nil {
		s.state.DateRangeStart = *req.DateRangeStart
	}
	if req.DateRangeEnd != nil {
		s.state.DateRangeEnd = *req.DateRangeEnd
	}
	if req.Timeframe != nil {
		s.state.Timeframe = models.Timeframe(*req.Timeframe)
	}
	if req.Metric != nil {
		s.state.Metric = models.Metric(*req.Metric)
	}
	if req.ColorScheme != nil {
		s.state.ColorScheme = models.ColorScheme(*req.ColorScheme)
	}
	if req.ChartHeight != nil {
		s.state.ChartHeight = *req.ChartHeight
	}
	if req.AutoRefresh != nil {
		s.state.AutoRefresh = *req.AutoRefresh
	}
	if req.RefreshInterval != nil {
		s.state.RefreshMs = *req.RefreshInterval
	}
	if req.ExportDialog != nil {
		s.state.ExportDialog = *req.ExportDialog
	}
	if req.SettingsOpen != nil {
		s.state.SettingsOpen = *req.SettingsOpen
	}
	out := s.state
	s.mu.Unlock()

	s.persist(ctx, out)
	return out, symbolChanged
}

// NavigateMonth moves the displayed month by delta months, normalizing
// across year boundaries.
func (s *Store) NavigateMonth(delta int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	year, month := util.AddMonths(s.state.Year, time.Month(s.state.Month), delta)
	s.state.Year = year
	s.state.Month = int(month)
	return s.state
}

// ResetFilters restores symbol, timeframe, and metric defaults. The color
// scheme, date selection, and displayed month are untouched.
func (s *Store) ResetFilters(ctx context.Context) State {
	s.mu.Lock()
	s.state.Symbol = DefaultSymbol
	s.state.Timeframe = DefaultTimeframe
	s.state.Metric = DefaultMetric
	out := s.state
	s.mu.Unlock()

	s.persist(ctx, out)
	return out
}

// ResetToToday selects today, displays its month, and clears the range.
func (s *Store) ResetToToday() State {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedDate = util.DayKey(now)
	s.state.Year = now.Year()
	s.state.Month = int(now.Month())
	s.state.DateRangeStart = ""
	s.state.DateRangeEnd = ""
	return s.state
}

func (s *Store) persist(ctx context.Context, st State) {
	p := persisted{
		Symbol:      st.Symbol,
		Timeframe:   st.Timeframe,
		Metric:      st.Metric,
		ColorScheme: st.ColorScheme,
		ChartHeight: st.ChartHeight,
		AutoRefresh: st.AutoRefresh,
		RefreshMs:   st.RefreshMs,
	}
	if err := s.cache.Set(ctx, StoreKey, p, 0); err != nil {
		s.log.Warn("view state persist failed", logger.Error(err))
	}
}
