// Package metrics exposes Prometheus instrumentation for the scheduler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the scheduling and playout core.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	pollsTotal           prometheus.Counter
	loopbacksTotal       prometheus.Counter
	rebalancesTotal      prometheus.Counter
	scheduleInsertsTotal prometheus.Counter
}

// New creates and registers Prometheus metrics for the scheduler.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	pollsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_playout_polls_total",
		Help: "Total number of playout engine webhook polls",
	})
	loopbacksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_playout_loopbacks_total",
		Help: "Total number of timeline loop-backs triggered by resolution",
	})
	rebalancesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_schedule_rebalances_total",
		Help: "Total number of schedule rebalance operations",
	})
	scheduleInsertsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_schedule_inserts_total",
		Help: "Total number of schedule entries created",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		pollsTotal,
		loopbacksTotal,
		rebalancesTotal,
		scheduleInsertsTotal,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		pollsTotal:           pollsTotal,
		loopbacksTotal:       loopbacksTotal,
		rebalancesTotal:      rebalancesTotal,
		scheduleInsertsTotal: scheduleInsertsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// IncPolls increments the webhook poll counter.
func (m *Metrics) IncPolls() {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
}

// IncLoopbacks increments the loop-back counter.
func (m *Metrics) IncLoopbacks() {
	if m == nil {
		return
	}
	m.loopbacksTotal.Inc()
}

// IncRebalances increments the rebalance counter.
func (m *Metrics) IncRebalances() {
	if m == nil {
		return
	}
	m.rebalancesTotal.Inc()
}

// IncScheduleInserts increments the schedule insert counter.
func (m *Metrics) IncScheduleInserts() {
	if m == nil {
		return
	}
	m.scheduleInsertsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
