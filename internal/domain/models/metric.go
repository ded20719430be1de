package models

// Metric selects which derived statistic the calendar visualizes.
type Metric string

const (
	MetricVolatility  Metric = "volatility"
	MetricLiquidity   Metric = "liquidity"
	MetricPerformance Metric = "performance"
)

// IsValidMetric reports whether m is a supported metric.
func IsValidMetric(m Metric) bool {
	switch m {
	case MetricVolatility, MetricLiquidity, MetricPerformance:
		return true
	default:
		return false
	}
}

// NormalizeMetric converts a raw string to a valid metric (or the default).
func NormalizeMetric(s string) Metric {
	m := Metric(s)
	if IsValidMetric(m) {
		return m
	}
	return MetricVolatility
}

// Intensity is the three-level display bucket for a metric value.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Sign is the direction of a performance value.
type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
	SignFlat     Sign = "flat"
)

// Timeframe selects the calendar granularity.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// IsValidTimeframe reports whether tf is supported.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
		return true
	default:
		return false
	}
}

// ColorScheme selects the calendar palette.
type ColorScheme string

const (
	SchemeDefault      ColorScheme = "default"
	SchemeHighContrast ColorScheme = "high-contrast"
	SchemeColorblind   ColorScheme = "colorblind-friendly"
)

// IsValidColorScheme reports whether cs is supported.
func IsValidColorScheme(cs ColorScheme) bool {
	switch cs {
	case SchemeDefault, SchemeHighContrast, SchemeColorblind:
		return true
	default:
		return false
	}
}
