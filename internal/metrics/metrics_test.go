package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return InitMetrics(reg), reg
}

func TestInitMetrics_RegistersAll(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RecordWorkflowCreated()
	m.RecordStageSubmission("task-one", "ok")
	m.RecordValidationFailure("task-two")
	m.RecordWorkflowCompleted()
	m.ObserveStore("get", 0)
	m.RecordExport("task-zero", "text")
	m.RecordHTTPRequest("GET", "/healthz", 200, 0)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"rubric_http_requests_total",
		"rubric_http_request_duration_seconds",
		"rubric_workflows_created_total",
		"rubric_stage_submissions_total",
		"rubric_validation_failures_total",
		"rubric_workflows_completed_total",
		"rubric_store_operation_duration_seconds",
		"rubric_exports_total",
	} {
		assert.True(t, names[name], "missing metric %s", name)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/workflow/:id", func(c echo.Context) error {
		if c.Param("id") == "404" {
			return echo.NewHTTPError(http.StatusNotFound, "missing")
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/api/workflow/1", "/api/workflow/2", "/api/workflow/404"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/workflow/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/workflow/:id", "404")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RecordStageSubmission("task-three", "VALIDATION_ERROR")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `rubric_stage_submissions_total{outcome="VALIDATION_ERROR",stage="task-three"} 1`))
}
