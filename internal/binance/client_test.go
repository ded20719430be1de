package binance

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"CandleScope/pkg/config"
	"CandleScope/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, string)      {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordAnomaly(string, string)    {}
func (noopMetrics) RecordLatency(string, float64)   {}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	cfg.Binance.BaseURL = baseURL
	cfg.Binance.Timeout = 5 * time.Second
	cfg.Binance.Retry.MaxAttempts = 3
	cfg.Binance.Retry.InitialInterval = time.Millisecond
	cfg.Binance.Retry.MaxInterval = 5 * time.Millisecond
	return NewClient(cfg, log, noopMetrics{})
}

const klinePayload = `[
  [1705276800000,"42500.00","43200.00","42100.00","42800.00","2500000.00",1705363199999,"107000000.00",183421,"1250000.00","53500000.00","0"]
]`

func TestMonthlyKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1d" {
			t.Errorf("query = %v", q)
		}
		if q.Get("startTime") == "" || q.Get("endTime") == "" {
			t.Error("missing month window")
		}
		w.Write([]byte(klinePayload))
	}))
	defer srv.Close()

	klines, err := testClient(t, srv.URL).MonthlyKlines(context.Background(), "BTCUSDT", 2024, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if len(klines) != 1 {
		t.Fatalf("got %d klines", len(klines))
	}
	if klines[0].Open != "42500.00" || klines[0].NumberOfTrades != 183421 {
		t.Errorf("kline fields = %+v", klines[0])
	}
}

func TestRecentKlinesUsesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "30" {
			t.Errorf("limit = %s", got)
		}
		w.Write([]byte(klinePayload))
	}))
	defer srv.Close()

	if _, err := testClient(t, srv.URL).RecentKlines(context.Background(), "BTCUSDT", 30); err != nil {
		t.Fatal(err)
	}
}

func TestTicker24hParsesStringDecimals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","priceChange":"-94.99","priceChangePercent":"-0.22",
			"lastPrice":"42800.00","volume":"2500000.00","count":183421,
			"openPrice":"42894.99","highPrice":"43200.00","lowPrice":"42100.00"}`))
	}))
	defer srv.Close()

	stats, err := testClient(t, srv.URL).Ticker24h(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if stats.LastPrice != 42800 || stats.PriceChangePercent != -0.22 || stats.Count != 183421 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTicker24hMalformedDecimalBecomesNaN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"not-a-number","volume":"1.0"}`))
	}))
	defer srv.Close()

	stats, err := testClient(t, srv.URL).Ticker24h(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(stats.LastPrice) {
		t.Errorf("lastPrice = %v, want NaN", stats.LastPrice)
	}
	if stats.Volume != 1 {
		t.Errorf("volume = %v", stats.Volume)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Ticker24h(context.Background(), "NOPE")
	remote, ok := AsRemote(err)
	if !ok {
		t.Fatalf("err = %v, want RemoteAPIError", err)
	}
	if remote.Status != http.StatusBadRequest {
		t.Errorf("status = %d", remote.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry of 4xx)", got)
	}
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"mins":5,"price":"42800.00"}`))
	}))
	defer srv.Close()

	avg, err := testClient(t, srv.URL).AvgPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if avg.Price != "42800.00" || avg.Mins != 5 {
		t.Errorf("avg = %+v", avg)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestNetworkErrorTaxonomy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := testClient(t, srv.URL).Ticker24h(context.Background(), "BTCUSDT")
	ne, ok := AsNetwork(err)
	if !ok {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if ne.UserMessage() == "" {
		t.Error("empty user message")
	}
}

func TestRemoteAPIErrorUserMessages(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{429, "Rate limited"},
		{400, "rejected the request"},
		{502, "temporarily unavailable"},
	}
	for _, tc := range cases {
		e := &RemoteAPIError{Status: tc.status, Endpoint: "/klines"}
		if msg := e.UserMessage(); !strings.Contains(msg, tc.want) {
			t.Errorf("status %d: message %q missing %q", tc.status, msg, tc.want)
		}
	}
}
