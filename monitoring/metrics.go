package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	availabilityProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_probes_total",
			Help: "Availability probes against the inventory backend",
		},
		[]string{"result"},
	)

	purchaseAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_attempts_total",
			Help: "Purchase executor attempts by outcome",
		},
		[]string{"outcome"},
	)

	runningTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "automation_tasks_running",
			Help: "Automation tasks currently in the running state",
		},
	)

	taskResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_task_results_total",
			Help: "Terminal automation task results",
		},
		[]string{"result"},
	)

	checkoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout session operations by status",
		},
		[]string{"operation", "status"},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purchase_duration_seconds",
			Help:    "Wall-clock duration of purchase executor runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

// TrackProbe records one availability probe result.
func TrackProbe(available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	availabilityProbes.WithLabelValues(result).Inc()
}

// TrackPurchase records one executor attempt outcome and its duration.
func TrackPurchase(outcome string, d time.Duration) {
	purchaseAttempts.WithLabelValues(outcome).Inc()
	purchaseDuration.Observe(d.Seconds())
}

// TrackTaskRunning adjusts the running-task gauge.
func TrackTaskRunning(delta float64) {
	runningTasks.Add(delta)
}

// TrackTaskResult records a terminal task result.
func TrackTaskResult(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	taskResults.WithLabelValues(result).Inc()
}

// TrackCheckout records a gateway operation.
func TrackCheckout(operation, st string) {
	checkoutSessions.WithLabelValues(operation, st).Inc()
}
