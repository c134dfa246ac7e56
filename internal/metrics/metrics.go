// Package metrics exposes the Prometheus counters/gauges for the core:
// accepted/rejected orders, live session count, executions applied.
// Grounded in the teacher's monitoring.prometheus.go (package-level
// promauto collectors, a Handler() for the /metrics endpoint, small
// Record*/Set* functions as the only way the rest of the codebase
// touches metrics).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixcore_orders_accepted_total",
			Help: "Total NewOrderSingle messages admitted into status=new, by symbol and side.",
		},
		[]string{"symbol", "side"},
	)

	ordersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixcore_orders_rejected_total",
			Help: "Total order admissions rejected, by reason kind (§7's error taxonomy).",
		},
		[]string{"reason"},
	)

	executionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixcore_executions_applied_total",
			Help: "Total fills applied by the lifecycle engine, by symbol.",
		},
		[]string{"symbol"},
	)

	liveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fixcore_live_sessions",
			Help: "Current number of logged-on FIX sessions.",
		},
	)
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOrderAccepted records one admitted NewOrderSingle.
func RecordOrderAccepted(symbol, side string) {
	ordersAccepted.WithLabelValues(symbol, side).Inc()
}

// RecordOrderRejected records one rejected admission, tagged by the
// coreerr.Kind that caused it.
func RecordOrderRejected(reason string) {
	ordersRejected.WithLabelValues(reason).Inc()
}

// RecordExecution records one applied fill.
func RecordExecution(symbol string) {
	executionsApplied.WithLabelValues(symbol).Inc()
}

// SetLiveSessions sets the current live session gauge.
func SetLiveSessions(count int) {
	liveSessions.Set(float64(count))
}
