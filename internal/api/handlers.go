package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rubric-review/backend/internal/logging"
	"rubric-review/backend/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HealthHandler returns basic health status. It always answers 200 OK; the
// store field reports whether the workflow store is reachable.
func HealthHandler(store Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := HealthStatus{
			Status:    "ok",
			Store:     "ok",
			Timestamp: time.Now().UTC(),
			Service:   "rubric-review",
			Version:   Version,
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			status.Store = "unavailable"
		}
		return c.JSON(http.StatusOK, status)
	}
}

// ProblemDetails represents an RFC 7807 Problem Details response, extended
// with the error code, a short error indicator and field-level details.
type ProblemDetails struct {
	Type     string              `json:"type"`
	Title    string              `json:"title"`
	Status   int                 `json:"status"`
	Detail   string              `json:"detail"`
	Instance string              `json:"instance,omitempty"`
	Code     string              `json:"code,omitempty"`
	Error    string              `json:"error,omitempty"`
	Details  []models.FieldError `json:"details,omitempty"`
}

// routeError carries the indicator string of the route that failed.
type routeError struct {
	indicator string
	err       error
}

func (e *routeError) Error() string { return e.indicator + ": " + e.err.Error() }
func (e *routeError) Unwrap() error { return e.err }

func withIndicator(indicator string, err error) error {
	if err == nil {
		return nil
	}
	return &routeError{indicator: indicator, err: err}
}

const indicatorNotFound = "Workflow not found"

func statusForCode(code string) int {
	switch code {
	case models.ErrNotFound, models.ErrStorageInconsistency:
		return http.StatusNotFound
	case models.ErrValidationError, models.ErrBadRequest:
		return http.StatusBadRequest
	case models.ErrInvalidTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// problemFor maps any handler error to problem details.
func problemFor(err error) ProblemDetails {
	indicator := ""
	var re *routeError
	if errors.As(err, &re) {
		indicator = re.indicator
	}

	var env *models.ErrorEnvelope
	if errors.As(err, &env) {
		status := statusForCode(env.Code)
		if env.Code == models.ErrNotFound {
			indicator = indicatorNotFound
		}
		return ProblemDetails{
			Type:    "about:blank",
			Title:   http.StatusText(status),
			Status:  status,
			Detail:  env.Message,
			Code:    env.Code,
			Error:   indicator,
			Details: env.Details,
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
		code := models.ErrInternalError
		switch {
		case he.Code == http.StatusNotFound:
			code = models.ErrNotFound
		case he.Code < http.StatusInternalServerError:
			code = models.ErrBadRequest
		}
		return ProblemDetails{
			Type:   "about:blank",
			Title:  http.StatusText(he.Code),
			Status: he.Code,
			Detail: detail,
			Code:   code,
			Error:  indicator,
		}
	}

	internal := models.NewInternalError()
	return ProblemDetails{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
		Detail: internal.Message,
		Code:   internal.Code,
		Error:  indicator,
	}
}

// ErrorHandler returns an echo.HTTPErrorHandler that writes RFC 7807 problem
// details. Server errors are logged; their detail is not exposed.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		problem := problemFor(err)
		problem.Instance = c.Request().URL.Path
		if problem.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"error", err,
			)
		}
		writeError(c, problem)
	}
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(c echo.Context, problem ProblemDetails) {
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(problem.Status)
		return
	}
	// c.JSON keeps a content type that is already set
	_ = c.JSON(problem.Status, problem)
}
