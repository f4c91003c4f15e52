package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckbrick_invocations_total",
			Help: "Pipeline invocations by outcome (ok, failed, cancelled)",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "truckbrick_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"stage", "engine"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckbrick_stage_failures_total",
			Help: "Pipeline stage failures by error code",
		},
		[]string{"stage", "code"},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "truckbrick_invocations_in_flight",
			Help: "Pipeline invocations currently running",
		},
	)
)
