// Package anomaly flags suspicious or malformed day records.
package anomaly

import (
	"fmt"
	"math"
	"time"

	"CandleScope/internal/domain/models"
	"CandleScope/pkg/util"
)

// Detection thresholds. Tuned for daily crypto klines on USDT pairs.
const (
	extremeVolatility = 0.5        // (high-low)/close
	flashCrashDrop    = 0.3        // (avg-low)/avg, avg=(open+close)/2
	extremePriceMove  = 0.2        // |(close-open)/open|
	volumeSpike       = 25_000_000 // base-asset volume
)

// Detector evaluates day records against a fixed, ordered rule set.
// Rules are cumulative: a record can carry several findings, except that
// an empty record short-circuits to a single no-data finding.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Inspect returns every finding for a single day record, in rule order.
func (d *Detector) Inspect(rec models.DayRecord) []models.Finding {
	if rec.Open == 0 && rec.High == 0 && rec.Low == 0 && rec.Close == 0 && rec.Volume == 0 {
		return []models.Finding{{
			Kind:     models.AnomalyNoData,
			Severity: models.SeverityWarning,
			Message:  "no market data for this day",
		}}
	}

	var findings []models.Finding
	add := func(kind models.AnomalyKind, sev models.Severity, format string, args ...any) {
		findings = append(findings, models.Finding{
			Kind:     kind,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if rec.Volume == 0 {
		add(models.AnomalyZeroVolume, models.SeverityWarning, "zero traded volume")
	}

	// Close of zero gives +Inf here, which still flags; NaN compares false
	// and falls through.
	if v := (rec.High - rec.Low) / rec.Close; v > extremeVolatility {
		add(models.AnomalyExtremeVolatility, models.SeverityError,
			"intraday range is %.1f%% of close", v*100)
	}

	// Flash crash is downside-only: a wick far below the open/close
	// midpoint. A symmetric spike above does not trigger it.
	if avg := (rec.Open + rec.Close) / 2; avg > 0 {
		if drop := (avg - rec.Low) / avg; drop > flashCrashDrop {
			add(models.AnomalyFlashCrash, models.SeverityError,
				"low is %.1f%% below the open/close midpoint", drop*100)
		}
	}

	if rec.Open != 0 {
		if pc := (rec.Close - rec.Open) / rec.Open; math.Abs(pc) > extremePriceMove {
			add(models.AnomalyExtremePriceChange, models.SeverityError,
				"close moved %.1f%% from open", pc*100)
		}
	}

	if rec.Volume > volumeSpike {
		add(models.AnomalyVolumeSpike, models.SeverityWarning,
			"volume %.0f exceeds spike threshold", rec.Volume)
	}

	if day, err := time.Parse(util.DayKeyLayout, rec.Date); err == nil && util.IsWeekend(day) {
		add(models.AnomalyWeekend, models.SeverityInfo, "weekend session")
	}

	if rec.High < rec.Low ||
		rec.Open > rec.High || rec.Open < rec.Low ||
		rec.Close > rec.High || rec.Close < rec.Low {
		add(models.AnomalyOHLCInconsistency, models.SeverityError,
			"OHLC values are internally inconsistent")
	}

	return findings
}

// InspectMonth runs Inspect over every populated day of a dataset and
// returns the findings keyed by day. Days without findings are omitted.
func (d *Detector) InspectMonth(ds *models.MonthlyDataset) map[string][]models.Finding {
	if ds == nil {
		return nil
	}
	out := make(map[string][]models.Finding)
	for day, rec := range ds.Days {
		if fs := d.Inspect(rec); len(fs) > 0 {
			out[day] = fs
		}
	}
	return out
}
