package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ChartLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chartfeed",
			Subsystem: "charts",
			Name:      "latency_seconds",
			Help:      "Latency of chart endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ChartErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartfeed",
			Subsystem: "charts",
			Name:      "errors_total",
			Help:      "Errors by chart endpoint",
		},
		[]string{"endpoint"},
	)

	ChartUnits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chartfeed",
			Subsystem: "charts",
			Name:      "units_total",
			Help:      "Bricks or columns produced per chart build",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ChartLatency, ChartErrors, ChartUnits)
	})
}
