package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "candlescope",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open ticker relay connections",
		},
	)

	WSMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candlescope",
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Ticker snapshots relayed to clients",
		},
		[]string{"symbol"},
	)

	WSErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candlescope",
			Subsystem: "ws",
			Name:      "errors_total",
			Help:      "Relay terminations due to errors",
		},
	)
)

// Register installs the relay collectors exactly once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(WSConnections, WSMessages, WSErrors)
	})
}
