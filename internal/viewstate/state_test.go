package viewstate

import (
	"context"
	"testing"
	"time"

	"CandleScope/internal/domain/models"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"
)

func testStore(t *testing.T, c cache.Service) *Store {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(context.Background(), c, log)
	s.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	s.state.Year, s.state.Month = 2024, 6
	return s
}

func TestNavigateMonthNormalizesYears(t *testing.T) {
	s := testStore(t, cache.NewMemoryCache())

	s.state.Year, s.state.Month = 2024, 1
	got := s.NavigateMonth(-1)
	if got.Year != 2023 || got.Month != 12 {
		t.Errorf("prev from 2024-01 = %d-%02d, want 2023-12", got.Year, got.Month)
	}

	got = s.NavigateMonth(1)
	if got.Year != 2024 || got.Month != 1 {
		t.Errorf("next undid prev incorrectly: %d-%02d", got.Year, got.Month)
	}
}

func TestNavigateThenBackIsIdentity(t *testing.T) {
	s := testStore(t, cache.NewMemoryCache())
	start := s.Current()

	for month := 1; month <= 12; month++ {
		s.state.Year, s.state.Month = start.Year, month
		s.NavigateMonth(1)
		got := s.NavigateMonth(-1)
		if got.Year != start.Year || got.Month != month {
			t.Errorf("month %d: round trip gave %d-%02d", month, got.Year, got.Month)
		}
	}
}

func TestPatchReportsSymbolChange(t *testing.T) {
	s := testStore(t, cache.NewMemoryCache())
	ctx := context.Background()

	eth := "ETHUSDT"
	_, changed := s.Patch(ctx, models.ViewPatchRequest{Symbol: &eth})
	if !changed {
		t.Error("symbol change not reported")
	}

	_, changed = s.Patch(ctx, models.ViewPatchRequest{Symbol: &eth})
	if changed {
		t.Error("same symbol reported as change")
	}

	height := 600
	st, changed := s.Patch(ctx, models.ViewPatchRequest{ChartHeight: &height})
	if changed {
		t.Error("chart height reported as symbol change")
	}
	if st.ChartHeight != 600 {
		t.Errorf("chart height = %d", st.ChartHeight)
	}
}

func TestResetFiltersKeepsDateSelection(t *testing.T) {
	s := testStore(t, cache.NewMemoryCache())
	ctx := context.Background()

	sel := "2024-06-10"
	metric := string(models.MetricLiquidity)
	eth := "ETHUSDT"
	scheme := string(models.SchemeColorblind)
	s.Patch(ctx, models.ViewPatchRequest{Symbol: &eth, SelectedDate: &sel, Metric: &metric, ColorScheme: &scheme})

	st := s.ResetFilters(ctx)
	if st.Symbol != DefaultSymbol || st.Metric != DefaultMetric {
		t.Errorf("filters not reset: %+v", st)
	}
	if st.ColorScheme != models.SchemeColorblind {
		t.Errorf("color scheme = %s, want chosen scheme preserved", st.ColorScheme)
	}
	if st.SelectedDate != sel {
		t.Errorf("selected date lost: %q", st.SelectedDate)
	}
	if st.Year != 2024 || st.Month != 6 {
		t.Errorf("displayed month moved: %d-%02d", st.Year, st.Month)
	}
}

func TestResetToToday(t *testing.T) {
	s := testStore(t, cache.NewMemoryCache())
	ctx := context.Background()

	start, end := "2024-01-01", "2024-01-31"
	s.Patch(ctx, models.ViewPatchRequest{DateRangeStart: &start, DateRangeEnd: &end})
	s.state.Year, s.state.Month = 2023, 2

	st := s.ResetToToday()
	if st.SelectedDate != "2024-06-15" {
		t.Errorf("selected date = %q", st.SelectedDate)
	}
	if st.Year != 2024 || st.Month != 6 {
		t.Errorf("displayed month = %d-%02d", st.Year, st.Month)
	}
	if st.DateRangeStart != "" || st.DateRangeEnd != "" {
		t.Error("date range not cleared")
	}
}

func TestPersistedSubsetSurvivesRestart(t *testing.T) {
	c := cache.NewMemoryCache()
	s := testStore(t, c)
	ctx := context.Background()

	eth := "ETHUSDT"
	metric := string(models.MetricPerformance)
	sel := "2024-06-10"
	open := true
	height := 700
	s.Patch(ctx, models.ViewPatchRequest{
		Symbol: &eth, Metric: &metric, SelectedDate: &sel,
		SettingsOpen: &open, ChartHeight: &height,
	})

	// new store over the same cache simulates a restart
	log, _ := logger.New(&logger.Config{Level: "error", Format: "console"})
	restarted := NewStore(ctx, c, log)
	st := restarted.Current()

	if st.Symbol != "ETHUSDT" || st.Metric != models.MetricPerformance || st.ChartHeight != 700 {
		t.Errorf("durable fields lost: %+v", st)
	}
	if st.SelectedDate != "" || st.SettingsOpen {
		t.Error("transient fields leaked across restart")
	}
}

func TestNewStoreDefaults(t *testing.T) {
	s := testStore(t, cache.NewMemoryCache())
	st := s.Current()
	if st.Symbol != DefaultSymbol || st.Timeframe != DefaultTimeframe ||
		st.Metric != DefaultMetric || st.ColorScheme != DefaultScheme {
		t.Errorf("defaults = %+v", st)
	}
	if st.ChartHeight != 300 {
		t.Errorf("chart height default = %d, want 300", st.ChartHeight)
	}
	if st.RefreshMs != DefaultRefreshMs || !st.AutoRefresh {
		t.Errorf("refresh defaults = %d auto=%v", st.RefreshMs, st.AutoRefresh)
	}
}
