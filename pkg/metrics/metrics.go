package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NDATransitions counts lifecycle transitions by action (REQUEST_CREATED, NDA_SIGNED, ...) and result (success|conflict|error).
	NDATransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndagate_transitions_total",
			Help: "Total number of NDA lifecycle transitions attempted",
		},
		[]string{"action", "result"},
	)

	// SweepExpired counts rows closed by the expiration sweeper, by kind (nda|request).
	SweepExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndagate_sweep_expired_total",
			Help: "Total number of NDAs and requests expired by the sweeper",
		},
		[]string{"kind"},
	)

	// SweepDuration measures the wall time of a sweep pass.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ndagate_sweep_duration_seconds",
			Help:    "Duration of expiration sweep passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NotificationFailures counts notification dispatches that failed and were swallowed.
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndagate_notification_failures_total",
			Help: "Total number of failed notification dispatches",
		},
		[]string{"event"},
	)

	// AccessChecks counts hasAccess evaluations by outcome (allow|deny|error).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndagate_access_checks_total",
			Help: "Total number of access grant checks",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ndagate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
