// Package metrics holds the Prometheus instruments for the review service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDurationBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	storeDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Workflow
	WorkflowsCreatedTotal   prometheus.Counter
	StageSubmissionsTotal   *prometheus.CounterVec
	ValidationFailuresTotal *prometheus.CounterVec
	WorkflowsCompletedTotal prometheus.Counter
	StoreOperationDuration  *prometheus.HistogramVec

	// Export
	ExportsTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all metric instruments with reg.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		WorkflowsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rubric_workflows_created_total",
			Help: "Total number of workflows created from a Task 0 submission.",
		}),
		StageSubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_stage_submissions_total",
			Help: "Total number of stage submissions by outcome.",
		}, []string{"stage", "outcome"}),
		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_validation_failures_total",
			Help: "Total number of rejected stage payloads.",
		}, []string{"stage"}),
		WorkflowsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rubric_workflows_completed_total",
			Help: "Total number of workflows that reached the complete state.",
		}),
		StoreOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_store_operation_duration_seconds",
			Help:    "Workflow store operation duration in seconds.",
			Buckets: storeDurationBuckets,
		}, []string{"operation"}),

		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_exports_total",
			Help: "Total number of exported stage documents.",
		}, []string{"stage", "format"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WorkflowsCreatedTotal,
		m.StageSubmissionsTotal,
		m.ValidationFailuresTotal,
		m.WorkflowsCompletedTotal,
		m.StoreOperationDuration,
		m.ExportsTotal,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordWorkflowCreated records a new workflow.
func (m *Metrics) RecordWorkflowCreated() {
	m.WorkflowsCreatedTotal.Inc()
}

// RecordStageSubmission records the outcome of a stage submission. Outcome is
// "ok" or an error code.
func (m *Metrics) RecordStageSubmission(stage, outcome string) {
	m.StageSubmissionsTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordValidationFailure records a rejected payload.
func (m *Metrics) RecordValidationFailure(stage string) {
	m.ValidationFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordWorkflowCompleted records a workflow that received its last response.
func (m *Metrics) RecordWorkflowCompleted() {
	m.WorkflowsCompletedTotal.Inc()
}

// ObserveStore records the duration of a store operation.
func (m *Metrics) ObserveStore(operation string, duration time.Duration) {
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordExport records an exported document.
func (m *Metrics) RecordExport(stage, format string) {
	m.ExportsTotal.WithLabelValues(stage, format).Inc()
}

// Middleware returns echo middleware that records request metrics labelled by
// the registered route pattern rather than the raw path. Handler errors are
// passed to the echo error handler here so the recorded status is final.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			pattern := c.Path()
			if pattern == "" {
				pattern = c.Request().URL.Path
			}
			m.RecordHTTPRequest(c.Request().Method, pattern, c.Response().Status, time.Since(start))
			return nil
		}
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
