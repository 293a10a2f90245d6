package metrics

import "github.com/prometheus/client_golang/prometheus"

// Advisory pipeline Prometheus metrics.
var (
	AdvisoriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tariffd",
			Name:      "advisories_total",
			Help:      "Total number of composed advisories",
		},
		[]string{"outcome"}, // "ok" / "degraded" / "error"
	)

	AdvisoryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tariffd",
			Name:      "advisory_duration_seconds",
			Help:      "End-to-end advisory composition duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tariffd",
			Name:      "prediction_duration_seconds",
			Help:      "Single-carrier encode+predict duration in seconds",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tariffd",
			Name:      "retrieval_duration_seconds",
			Help:      "Evidence retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"}, // "ok" / "timeout" / "error"
	)

	RetrievalDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tariffd",
			Name:      "retrieval_degraded_total",
			Help:      "Advisories served without evidence due to retrieval failure",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers advisory pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(AdvisoriesTotal)
	prometheus.MustRegister(AdvisoryDuration)
	prometheus.MustRegister(PredictionDuration)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalDegradedTotal)
	pipelineMetricsRegistered = true
}
