// Package classify buckets derived day records into display intensities.
package classify

import (
	"CandleScope/internal/domain/models"
)

// Fixed display thresholds. Not configurable.
const (
	ratioLowMax    = 0.02      // volatility / |priceChange| below this is low
	ratioMediumMax = 0.05      // below this is medium, else high
	volumeLowMax   = 1_000_000 // quote volume below this is low
	volumeMedMax   = 5_000_000 // below this is medium, else high
)

// Classification is the display bucket for one day record and metric.
type Classification struct {
	Metric    models.Metric    `json:"metric"`
	Intensity models.Intensity `json:"intensity"`
	Sign      models.Sign      `json:"sign,omitempty"`
	Color     string           `json:"color"`
}

// Classify buckets a record's selected metric. It is total over any finite
// float input; malformed values (negative volume, NaN volatility) still map
// to a bucket — flagging them is the anomaly detector's job, not ours.
func Classify(rec models.DayRecord, metric models.Metric, scheme models.ColorScheme) Classification {
	cl := Classification{Metric: metric}

	switch metric {
	case models.MetricLiquidity:
		cl.Intensity = bucketVolume(rec.Volume)
	case models.MetricPerformance:
		cl.Intensity = bucketRatio(abs(rec.PriceChange))
		cl.Sign = sign(rec.PriceChange)
	default: // volatility
		cl.Intensity = bucketRatio(rec.Volatility)
	}

	cl.Color = color(cl, scheme)
	return cl
}

func bucketRatio(v float64) models.Intensity {
	switch {
	case v < ratioLowMax:
		return models.IntensityLow
	case v < ratioMediumMax:
		return models.IntensityMedium
	default:
		return models.IntensityHigh
	}
}

func bucketVolume(v float64) models.Intensity {
	switch {
	case v < volumeLowMax:
		return models.IntensityLow
	case v < volumeMedMax:
		return models.IntensityMedium
	default:
		return models.IntensityHigh
	}
}

func sign(v float64) models.Sign {
	switch {
	case v > 0:
		return models.SignPositive
	case v < 0:
		return models.SignNegative
	default:
		return models.SignFlat
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Palettes keyed by intensity. Performance additionally splits on sign.
var palettes = map[models.ColorScheme]struct {
	heat     map[models.Intensity]string // volatility, liquidity
	gain     map[models.Intensity]string
	loss     map[models.Intensity]string
	flat     string
}{
	models.SchemeDefault: {
		heat: map[models.Intensity]string{models.IntensityLow: "#dcfce7", models.IntensityMedium: "#fde047", models.IntensityHigh: "#f87171"},
		gain: map[models.Intensity]string{models.IntensityLow: "#dcfce7", models.IntensityMedium: "#86efac", models.IntensityHigh: "#22c55e"},
		loss: map[models.Intensity]string{models.IntensityLow: "#fee2e2", models.IntensityMedium: "#fca5a5", models.IntensityHigh: "#ef4444"},
		flat: "#f3f4f6",
	},
	models.SchemeHighContrast: {
		heat: map[models.Intensity]string{models.IntensityLow: "#ffffff", models.IntensityMedium: "#ffd700", models.IntensityHigh: "#ff0000"},
		gain: map[models.Intensity]string{models.IntensityLow: "#e0ffe0", models.IntensityMedium: "#00c000", models.IntensityHigh: "#006400"},
		loss: map[models.Intensity]string{models.IntensityLow: "#ffe0e0", models.IntensityMedium: "#ff4040", models.IntensityHigh: "#8b0000"},
		flat: "#d0d0d0",
	},
	models.SchemeColorblind: {
		heat: map[models.Intensity]string{models.IntensityLow: "#e8f4f8", models.IntensityMedium: "#f5d76e", models.IntensityHigh: "#d35400"},
		gain: map[models.Intensity]string{models.IntensityLow: "#d6eaf8", models.IntensityMedium: "#5dade2", models.IntensityHigh: "#1f618d"},
		loss: map[models.Intensity]string{models.IntensityLow: "#fdebd0", models.IntensityMedium: "#f39c12", models.IntensityHigh: "#ba4a00"},
		flat: "#eaecee",
	},
}

func color(cl Classification, scheme models.ColorScheme) string {
	p, ok := palettes[scheme]
	if !ok {
		p = palettes[models.SchemeDefault]
	}

	if cl.Metric == models.MetricPerformance {
		switch cl.Sign {
		case models.SignPositive:
			return p.gain[cl.Intensity]
		case models.SignNegative:
			return p.loss[cl.Intensity]
		default:
			return p.flat
		}
	}
	return p.heat[cl.Intensity]
}
