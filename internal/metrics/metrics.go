// Package metrics holds the Prometheus metrics for envop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all metrics on its own registry; no global state.
type Collector struct {
	Registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CommandExitCodes  *prometheus.CounterVec
	CommandTimeouts   *prometheus.CounterVec
	SandboxSessions   *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,

		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envop",
			Subsystem: "operator",
			Name:      "operations_total",
			Help:      "Total operator calls.",
		}, []string{"env", "op", "status"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "envop",
			Subsystem: "operator",
			Name:      "operation_duration_seconds",
			Help:      "Operator call duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"env", "op"}),

		CommandExitCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envop",
			Subsystem: "command",
			Name:      "exits_total",
			Help:      "Completed commands by zero or non-zero exit.",
		}, []string{"env", "result"}),

		CommandTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envop",
			Subsystem: "command",
			Name:      "timeouts_total",
			Help:      "Commands that exceeded their timeout.",
		}, []string{"env"}),

		SandboxSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envop",
			Subsystem: "sandbox",
			Name:      "session_creations_total",
			Help:      "Sandbox session creation attempts.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.OperationsTotal,
		c.OperationDuration,
		c.CommandExitCodes,
		c.CommandTimeouts,
		c.SandboxSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveOperation records one operator call.
func (c *Collector) ObserveOperation(env, op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.OperationsTotal.WithLabelValues(env, op, status).Inc()
	c.OperationDuration.WithLabelValues(env, op).Observe(d.Seconds())
}

// ObserveExit records a completed command.
func (c *Collector) ObserveExit(env string, exitCode int) {
	if c == nil {
		return
	}
	result := "zero"
	if exitCode != 0 {
		result = "nonzero"
	}
	c.CommandExitCodes.WithLabelValues(env, result).Inc()
}

// ObserveTimeout records a command timeout.
func (c *Collector) ObserveTimeout(env string) {
	if c == nil {
		return
	}
	c.CommandTimeouts.WithLabelValues(env).Inc()
}

// ObserveSessionCreate records a sandbox session creation attempt.
func (c *Collector) ObserveSessionCreate(err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.SandboxSessions.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}
