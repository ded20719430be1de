package classify

import (
	"testing"

	"CandleScope/internal/domain/models"
)

func record(volatility, priceChange, volume float64) models.DayRecord {
	return models.DayRecord{
		Date:        "2024-01-15",
		Volatility:  volatility,
		PriceChange: priceChange,
		Volume:      volume,
	}
}

func TestClassifyVolatilityBuckets(t *testing.T) {
	cases := []struct {
		value float64
		want  models.Intensity
	}{
		{0, models.IntensityLow},
		{0.0199, models.IntensityLow},
		{0.02, models.IntensityMedium},
		{0.0499, models.IntensityMedium},
		{0.05, models.IntensityHigh},
		{0.8, models.IntensityHigh},
	}
	for _, tc := range cases {
		got := Classify(record(tc.value, 0, 0), models.MetricVolatility, models.SchemeDefault)
		if got.Intensity != tc.want {
			t.Errorf("volatility %v: got %s, want %s", tc.value, got.Intensity, tc.want)
		}
		if got.Sign != "" {
			t.Errorf("volatility %v: unexpected sign %q", tc.value, got.Sign)
		}
	}
}

func TestClassifyLiquidityBuckets(t *testing.T) {
	cases := []struct {
		volume float64
		want   models.Intensity
	}{
		{999_999, models.IntensityLow},
		{1_000_000, models.IntensityMedium},
		{4_999_999, models.IntensityMedium},
		{5_000_000, models.IntensityHigh},
	}
	for _, tc := range cases {
		got := Classify(record(0, 0, tc.volume), models.MetricLiquidity, models.SchemeDefault)
		if got.Intensity != tc.want {
			t.Errorf("volume %v: got %s, want %s", tc.volume, got.Intensity, tc.want)
		}
	}
}

func TestClassifyPerformanceSign(t *testing.T) {
	cases := []struct {
		change    float64
		wantSign  models.Sign
		wantLevel models.Intensity
	}{
		{0.03, models.SignPositive, models.IntensityMedium},
		{-0.03, models.SignNegative, models.IntensityMedium},
		{0, models.SignFlat, models.IntensityLow},
		{-0.07, models.SignNegative, models.IntensityHigh},
	}
	for _, tc := range cases {
		got := Classify(record(0, tc.change, 0), models.MetricPerformance, models.SchemeDefault)
		if got.Sign != tc.wantSign {
			t.Errorf("change %v: sign %s, want %s", tc.change, got.Sign, tc.wantSign)
		}
		if got.Intensity != tc.wantLevel {
			t.Errorf("change %v: intensity %s, want %s", tc.change, got.Intensity, tc.wantLevel)
		}
	}
}

// Bucket assignment must be monotone: a larger metric value never maps to a
// lower intensity.
func TestClassifyMonotone(t *testing.T) {
	rank := map[models.Intensity]int{
		models.IntensityLow:    0,
		models.IntensityMedium: 1,
		models.IntensityHigh:   2,
	}

	values := []float64{0, 0.005, 0.01, 0.02, 0.03, 0.05, 0.1, 0.5, 1}
	prev := -1
	for _, v := range values {
		got := Classify(record(v, 0, 0), models.MetricVolatility, models.SchemeDefault)
		if rank[got.Intensity] < prev {
			t.Fatalf("intensity decreased at volatility %v", v)
		}
		prev = rank[got.Intensity]
	}

	volumes := []float64{0, 500_000, 1_000_000, 2_000_000, 5_000_000, 50_000_000}
	prev = -1
	for _, v := range volumes {
		got := Classify(record(0, 0, v), models.MetricLiquidity, models.SchemeDefault)
		if rank[got.Intensity] < prev {
			t.Fatalf("intensity decreased at volume %v", v)
		}
		prev = rank[got.Intensity]
	}
}

func TestClassifyColorsPerScheme(t *testing.T) {
	rec := record(0.06, 0.03, 0)

	schemes := []models.ColorScheme{models.SchemeDefault, models.SchemeHighContrast, models.SchemeColorblind}
	seen := map[string]bool{}
	for _, s := range schemes {
		got := Classify(rec, models.MetricVolatility, s)
		if got.Color == "" {
			t.Fatalf("scheme %s: empty color", s)
		}
		if seen[got.Color] {
			t.Errorf("scheme %s: color %s reused across schemes", s, got.Color)
		}
		seen[got.Color] = true
	}

	// Unknown scheme falls back to the default palette.
	def := Classify(rec, models.MetricVolatility, models.SchemeDefault)
	unk := Classify(rec, models.MetricVolatility, models.ColorScheme("sepia"))
	if def.Color != unk.Color {
		t.Errorf("unknown scheme: got %s, want default %s", unk.Color, def.Color)
	}

	// Gains and losses use distinct colors under every scheme.
	for _, s := range schemes {
		up := Classify(record(0, 0.03, 0), models.MetricPerformance, s)
		down := Classify(record(0, -0.03, 0), models.MetricPerformance, s)
		if up.Color == down.Color {
			t.Errorf("scheme %s: gain and loss share color %s", s, up.Color)
		}
	}
}
