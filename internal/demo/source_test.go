package demo

import (
	"context"
	"testing"
	"time"

	"CandleScope/internal/domain/models"
)

func fixedSource(t *testing.T) *Source {
	t.Helper()
	s := NewSource()
	s.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestMonthlyKlinesDeterministic(t *testing.T) {
	s := fixedSource(t)
	ctx := context.Background()

	a, _ := s.MonthlyKlines(ctx, "BTCUSDT", 2024, time.February)
	b, _ := s.MonthlyKlines(ctx, "BTCUSDT", 2024, time.February)
	if len(a) != 29 {
		t.Fatalf("february 2024 should have 29 days, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("day %d differs between runs", i)
		}
	}

	other, _ := s.MonthlyKlines(ctx, "ETHUSDT", 2024, time.February)
	if a[0].Open == other[0].Open {
		t.Error("different symbols produced identical data")
	}
}

func TestMonthlyKlinesStopAtToday(t *testing.T) {
	s := fixedSource(t)
	ks, _ := s.MonthlyKlines(context.Background(), "BTCUSDT", 2024, time.March)
	if len(ks) != 20 {
		t.Fatalf("expected 20 elapsed days, got %d", len(ks))
	}
}

func TestKlinesParseClean(t *testing.T) {
	s := fixedSource(t)
	ks, _ := s.MonthlyKlines(context.Background(), "BTCUSDT", 2024, time.February)
	for _, k := range ks {
		for _, field := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			if v := models.ParseDecimal(field); v != v || v <= 0 {
				t.Fatalf("bad decimal %q", field)
			}
		}
		high := models.ParseDecimal(k.High)
		low := models.ParseDecimal(k.Low)
		if high < models.ParseDecimal(k.Open) || high < models.ParseDecimal(k.Close) {
			t.Errorf("high below open/close at %d", k.OpenTime)
		}
		if low > models.ParseDecimal(k.Open) || low > models.ParseDecimal(k.Close) {
			t.Errorf("low above open/close at %d", k.OpenTime)
		}
	}
}

func TestRecentKlinesSpansMonths(t *testing.T) {
	s := fixedSource(t)
	ks, _ := s.RecentKlines(context.Background(), "BTCUSDT", 30)
	if len(ks) != 30 {
		t.Fatalf("expected 30 klines, got %d", len(ks))
	}
	for i := 1; i < len(ks); i++ {
		if ks[i].OpenTime <= ks[i-1].OpenTime {
			t.Fatalf("klines out of order at %d", i)
		}
	}
}

func TestTicker24hFromLatestClose(t *testing.T) {
	s := fixedSource(t)
	stats, err := s.Ticker24h(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if stats.LastPrice <= 0 || stats.Symbol != "BTCUSDT" {
		t.Fatalf("stats = %+v", stats)
	}
	ks, _ := s.RecentKlines(context.Background(), "BTCUSDT", 1)
	if got := models.ParseDecimal(ks[0].Close); got != stats.LastPrice {
		t.Errorf("last price %v != latest close %v", stats.LastPrice, got)
	}
}
