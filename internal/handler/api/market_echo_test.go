package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CandleScope/internal/anomaly"
	"CandleScope/internal/binance"
	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
	"CandleScope/internal/stream"
	"CandleScope/internal/usecase"
	"CandleScope/internal/viewstate"
	"CandleScope/pkg/cache"
	"CandleScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubAPI struct {
	err error
}

func (s *stubAPI) MonthlyKlines(ctx context.Context, symbol string, year int, month time.Month) ([]models.RawKline, error) {
	if s.err != nil {
		return nil, s.err
	}
	base := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC).UnixMilli()
	return []models.RawKline{{
		OpenTime: base,
		Open:     "42500", High: "43200", Low: "42100", Close: "42800",
		Volume: "2500000", QuoteVolume: "0", NumberOfTrades: 100,
	}}, nil
}

func (s *stubAPI) RecentKlines(ctx context.Context, symbol string, limit int) ([]models.RawKline, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.MonthlyKlines(ctx, symbol, 2024, time.January)
}

func (s *stubAPI) Ticker24h(ctx context.Context, symbol string) (*models.TickerStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.TickerStats{Symbol: symbol, LastPrice: 42800}, nil
}

func (s *stubAPI) AvgPrice(ctx context.Context, symbol string) (*models.AvgPrice, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AvgPrice{Mins: 5, Price: "42800"}, nil
}

type stubDialer struct{}

func (stubDialer) OpenTickerStream(ctx context.Context, symbol string) (drepo.TickerStream, error) {
	return nil, context.Canceled
}

func newTestHandler(t *testing.T, api *stubAPI) *MarketHandler {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	c := cache.NewMemoryCache()
	detector := anomaly.NewDetector()
	market := usecase.NewMarketDataUseCase(api, c, detector, log, 2*time.Minute, 5*time.Minute)
	broker := stream.NewBroker(stubDialer{}, log, noopMetrics{})
	t.Cleanup(broker.Close)
	stats := usecase.NewStatsUseCase(api, c, broker, log, 30*time.Second)
	export := usecase.NewExportUseCase(market)
	view := viewstate.NewStore(context.Background(), c, log)
	return NewMarketHandler(log, market, stats, export, view)
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, string)      {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordAnomaly(string, string)    {}
func (noopMetrics) RecordLatency(string, float64)   {}

func doRequest(t *testing.T, h *MarketHandler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCalendarEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/calendar?symbol=BTCUSDT&year=2024&month=1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data usecase.CalendarResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Data.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s", envelope.Data.Symbol)
	}
	cell, ok := envelope.Data.Days["2024-01-15"]
	if !ok {
		t.Fatalf("missing day cell: %v", envelope.Data.Days)
	}
	if cell.Classification.Color == "" {
		t.Error("no color assigned")
	}
	if cell.Tooltip.Close != 42800 {
		t.Errorf("tooltip close = %v", cell.Tooltip.Close)
	}
}

func TestCalendarValidation(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/calendar?year=2024&month=1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing symbol: status = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/calendar?symbol=BTCUSDT&year=2024&month=13", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("month 13: status = %d", rec.Code)
	}
}

func TestCalendarRemoteErrorMapping(t *testing.T) {
	cases := []struct {
		upstream int
		want     int
	}{
		{http.StatusTooManyRequests, http.StatusTooManyRequests},
		{http.StatusBadRequest, http.StatusBadRequest},
		{http.StatusBadGateway, http.StatusBadGateway},
	}
	for _, tc := range cases {
		h := newTestHandler(t, &stubAPI{err: &binance.RemoteAPIError{Status: tc.upstream, Endpoint: "/klines"}})
		rec := doRequest(t, h, http.MethodGet, "/api/calendar?symbol=BTCUSDT&year=2024&month=1", "")
		if rec.Code != tc.want {
			t.Errorf("upstream %d: status = %d, want %d", tc.upstream, rec.Code, tc.want)
		}
	}
}

func TestCalendarNetworkErrorMapsToUnavailable(t *testing.T) {
	h := newTestHandler(t, &stubAPI{err: &binance.NetworkError{Endpoint: "/klines", Err: context.DeadlineExceeded}})
	rec := doRequest(t, h, http.MethodGet, "/api/calendar?symbol=BTCUSDT&year=2024&month=1", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestViewRoundTrip(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})

	rec := doRequest(t, h, http.MethodPatch, "/api/view", `{"symbol":"ETHUSDT","metric":"performance"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/api/view", "")
	var envelope struct {
		Data viewstate.State `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Data.Symbol != "ETHUSDT" || envelope.Data.Metric != models.MetricPerformance {
		t.Errorf("state = %+v", envelope.Data)
	}
}

func TestViewPatchValidation(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})
	rec := doRequest(t, h, http.MethodPatch, "/api/view", `{"metric":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNavigateEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})

	rec := doRequest(t, h, http.MethodPost, "/api/view/navigate", `{"direction":"prev"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPost, "/api/view/navigate", `{"direction":"sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad direction: status = %d", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})
	rec := doRequest(t, h, http.MethodPost, "/api/export",
		`{"format":"csv","symbol":"BTCUSDT","year":2024,"month":1}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %s", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "BTCUSDT-2024-01.csv") {
		t.Errorf("content disposition = %s", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "date,open,high,low,close") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/stats/24hr?symbol=BTCUSDT", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var envelope struct {
		Data models.TickerStats `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Data.LastPrice != 42800 {
		t.Errorf("last price = %v", envelope.Data.LastPrice)
	}
}

func TestRefreshEndpointRateLimits(t *testing.T) {
	h := newTestHandler(t, &stubAPI{})

	var last int
	for i := 0; i < 5; i++ {
		rec := doRequest(t, h, http.MethodPost, "/api/refresh", `{"symbol":"BTCUSDT"}`)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("fifth refresh status = %d, want 429", last)
	}
}
