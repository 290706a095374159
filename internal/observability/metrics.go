// Package observability exposes service metrics over Prometheus.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the plugin system.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	lifecycleOpsTotal *prometheus.CounterVec
	sandboxFailures   prometheus.Counter
	activeSandboxes   prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabhome_http_requests_total",
			Help: "HTTP requests by method, path, and status",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabhome_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		lifecycleOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabhome_plugin_lifecycle_operations_total",
			Help: "Plugin lifecycle operations by type and outcome",
		}, []string{"operation", "outcome"}),
		sandboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabhome_sandbox_failures_total",
			Help: "Plugin executions rejected by the sandbox",
		}),
		activeSandboxes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tabhome_active_sandboxes",
			Help: "Currently live sandbox contexts",
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.lifecycleOpsTotal,
		m.sandboxFailures,
		m.activeSandboxes,
	)
	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLifecycleOp records one lifecycle operation outcome.
func (m *Metrics) ObserveLifecycleOp(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.lifecycleOpsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveSandboxFailure records a rejected plugin execution.
func (m *Metrics) ObserveSandboxFailure() {
	if m == nil {
		return
	}
	m.sandboxFailures.Inc()
}

// SetActiveSandboxes records the live context count.
func (m *Metrics) SetActiveSandboxes(n int) {
	if m == nil {
		return
	}
	m.activeSandboxes.Set(float64(n))
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}
