package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	anomaliesSeen *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescope_fetches_total",
				Help: "Total number of upstream market-data fetches",
			},
			[]string{"endpoint", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescope_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlescope_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		anomaliesSeen: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlescope_anomalies_total",
				Help: "Anomaly findings by kind",
			},
			[]string{"kind", "severity"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlescope_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records an upstream fetch attempt and its outcome.
func (r *Recorder) RecordFetch(endpoint, result string) {
	r.fetchesTotal.WithLabelValues(endpoint, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordAnomaly records a detected anomaly finding.
func (r *Recorder) RecordAnomaly(kind, severity string) {
	r.anomaliesSeen.WithLabelValues(kind, severity).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
