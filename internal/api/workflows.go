// Package api contains the HTTP handlers for the rubric review service.
package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"rubric-review/backend/internal/export"
	"rubric-review/backend/internal/rubric"
	"rubric-review/backend/internal/services"
	"rubric-review/backend/pkg/models"
)

// Server implements ServerInterface on top of the workflow service.
type Server struct {
	Workflows *services.WorkflowService
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates a new Server.
func NewServer(workflows *services.WorkflowService) *Server {
	return &Server{Workflows: workflows}
}

// ListWorkflows returns workflows ordered by id
// (GET /api/workflow)
func (s *Server) ListWorkflows(c echo.Context, params ListWorkflowsParams) error {
	limit, offset := 100, 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	if params.Offset != nil {
		offset = *params.Offset
	}

	recs, err := s.Workflows.ListWorkflows(c.Request().Context(), limit, offset)
	if err != nil {
		return withIndicator(indicatorList, err)
	}
	return c.JSON(http.StatusOK, recs)
}

// CreateWorkflow stores a Task 0 submission as a new workflow
// (POST /api/workflow)
func (s *Server) CreateWorkflow(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return withIndicator(indicatorCreate, err)
	}

	rec, err := s.Workflows.CreateWorkflow(c.Request().Context(), body)
	if err != nil {
		return withIndicator(indicatorCreate, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetWorkflow returns one workflow
// (GET /api/workflow/:id)
func (s *Server) GetWorkflow(c echo.Context, id int64) error {
	rec, err := s.Workflows.GetWorkflow(c.Request().Context(), id)
	if err != nil {
		return withIndicator(indicatorNotFound, err)
	}
	return c.JSON(http.StatusOK, rec)
}

type stepUpdate struct {
	Step string `json:"step"`
}

// UpdateStep moves the workflow's current step
// (PATCH /api/workflow/:id/step)
func (s *Server) UpdateStep(c echo.Context, id int64) error {
	var body stepUpdate
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return withIndicator(indicatorStep, models.NewBadRequestError("request body must be a JSON object with a step"))
	}

	rec, err := s.Workflows.SetStep(c.Request().Context(), id, body.Step)
	if err != nil {
		return withIndicator(indicatorStep, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// SubmitStage records a Task 1-4 response
// (PATCH /api/workflow/:id/task-one ... task-four)
func (s *Server) SubmitStage(c echo.Context, id int64, stage models.Step) error {
	indicator := indicatorForStage(stage)
	body, err := readBody(c)
	if err != nil {
		return withIndicator(indicator, err)
	}

	rec, err := s.Workflows.SubmitStage(c.Request().Context(), id, stage, body)
	if err != nil {
		return withIndicator(indicator, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetRubricDraft returns the Task 2 item list for a workflow
// (GET /api/workflow/:id/rubric)
func (s *Server) GetRubricDraft(c echo.Context, id int64) error {
	draft, err := s.Workflows.RubricDraft(c.Request().Context(), id)
	if err != nil {
		return withIndicator(indicatorRubric, err)
	}
	return c.JSON(http.StatusOK, draft)
}

// ExportStage downloads one stage as a document
// (GET /api/workflow/:id/export/:stage)
func (s *Server) ExportStage(c echo.Context, id int64, stage string, params ExportStageParams) error {
	step, ok := models.ParseStep(stage)
	if !ok {
		return withIndicator(indicatorExport, models.NewBadRequestError(fmt.Sprintf("unknown stage %q", stage)))
	}
	format := export.FormatText
	if params.Format != nil {
		if format, ok = export.ParseFormat(*params.Format); !ok {
			return withIndicator(indicatorExport, models.NewBadRequestError(fmt.Sprintf("unknown format %q", *params.Format)))
		}
	}

	res, err := s.Workflows.Export(c.Request().Context(), id, step, format)
	if err != nil {
		return withIndicator(indicatorExport, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.FileName))
	return c.Blob(http.StatusOK, res.ContentType, res.Body)
}

type parseRequest struct {
	Text string `json:"text"`
}

// ParseRubric extracts rubric item names from free text
// (POST /api/rubric/parse)
func (s *Server) ParseRubric(c echo.Context) error {
	var body parseRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return withIndicator(indicatorRubric, models.NewBadRequestError("request body must be a JSON object with a text"))
	}
	return c.JSON(http.StatusOK, rubric.ParseNames(body.Text))
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, models.NewBadRequestError("failed to read request body")
	}
	return body, nil
}
