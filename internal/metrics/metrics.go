package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recalculations by outcome: updated, transitioned, skipped (missing
	// project), anomaly (NaN fallback), error.
	RecalculationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_recalculations_total",
			Help: "Total number of health score recalculations by outcome",
		},
		[]string{"outcome"},
	)

	StatusTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_status_transitions_total",
			Help: "Total number of automatic project status transitions",
		},
		[]string{"from", "to"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)
