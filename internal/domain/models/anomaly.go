package models

// AnomalyKind identifies a detected irregularity in a day's market data.
type AnomalyKind string

const (
	AnomalyNoData             AnomalyKind = "no-data"
	AnomalyZeroVolume         AnomalyKind = "zero-volume"
	AnomalyExtremeVolatility  AnomalyKind = "extreme-volatility"
	AnomalyFlashCrash         AnomalyKind = "flash-crash"
	AnomalyExtremePriceChange AnomalyKind = "extreme-price-change"
	AnomalyVolumeSpike        AnomalyKind = "volume-spike"
	AnomalyWeekend            AnomalyKind = "weekend"
	AnomalyOHLCInconsistency  AnomalyKind = "ohlc-inconsistency"
)

// Severity grades a finding. Findings are informational values, never errors.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one anomaly detected in a day record.
type Finding struct {
	Kind     AnomalyKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
}
