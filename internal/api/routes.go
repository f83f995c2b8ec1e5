package api

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"rubric-review/backend/pkg/models"
)

// Error indicators, one per route.
const (
	indicatorCreate = "Invalid input data"
	indicatorStep   = "Invalid step update"
	indicatorList   = "Invalid list request"
	indicatorRubric = "Invalid rubric request"
	indicatorExport = "Invalid export request"
)

func indicatorForStage(stage models.Step) string {
	return fmt.Sprintf("Invalid task %s responses", stage.Word())
}

// ServerInterface is the set of operations described in openapi.yaml.
type ServerInterface interface {
	// (GET /workflow)
	ListWorkflows(ctx echo.Context, params ListWorkflowsParams) error
	// (POST /workflow)
	CreateWorkflow(ctx echo.Context) error
	// (GET /workflow/{id})
	GetWorkflow(ctx echo.Context, id int64) error
	// (PATCH /workflow/{id}/step)
	UpdateStep(ctx echo.Context, id int64) error
	// (PATCH /workflow/{id}/task-one ... task-four)
	SubmitStage(ctx echo.Context, id int64, stage models.Step) error
	// (GET /workflow/{id}/rubric)
	GetRubricDraft(ctx echo.Context, id int64) error
	// (GET /workflow/{id}/export/{stage})
	ExportStage(ctx echo.Context, id int64, stage string, params ExportStageParams) error
	// (POST /rubric/parse)
	ParseRubric(ctx echo.Context) error
}

// ListWorkflowsParams defines parameters for ListWorkflows.
type ListWorkflowsParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// ExportStageParams defines parameters for ExportStage.
type ExportStageParams struct {
	Format *string `form:"format,omitempty" json:"format,omitempty"`
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func bindWorkflowID(ctx echo.Context, indicator string) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		return 0, withIndicator(indicator,
			models.NewBadRequestError(fmt.Sprintf("Invalid format for parameter id: %q", ctx.Param("id"))))
	}
	return id, nil
}

// ListWorkflows converts echo context to params.
func (w *ServerInterfaceWrapper) ListWorkflows(ctx echo.Context) error {
	var params ListWorkflowsParams

	if err := runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit); err != nil {
		return withIndicator(indicatorList, models.NewBadRequestError(fmt.Sprintf("Invalid format for parameter limit: %s", err)))
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", ctx.QueryParams(), &params.Offset); err != nil {
		return withIndicator(indicatorList, models.NewBadRequestError(fmt.Sprintf("Invalid format for parameter offset: %s", err)))
	}

	return w.Handler.ListWorkflows(ctx, params)
}

// CreateWorkflow converts echo context to params.
func (w *ServerInterfaceWrapper) CreateWorkflow(ctx echo.Context) error {
	return w.Handler.CreateWorkflow(ctx)
}

// GetWorkflow converts echo context to params.
func (w *ServerInterfaceWrapper) GetWorkflow(ctx echo.Context) error {
	id, err := bindWorkflowID(ctx, indicatorNotFound)
	if err != nil {
		return err
	}
	return w.Handler.GetWorkflow(ctx, id)
}

// UpdateStep converts echo context to params.
func (w *ServerInterfaceWrapper) UpdateStep(ctx echo.Context) error {
	id, err := bindWorkflowID(ctx, indicatorStep)
	if err != nil {
		return err
	}
	return w.Handler.UpdateStep(ctx, id)
}

// submitStage returns the handler for one stage route.
func (w *ServerInterfaceWrapper) submitStage(stage models.Step) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := bindWorkflowID(ctx, indicatorForStage(stage))
		if err != nil {
			return err
		}
		return w.Handler.SubmitStage(ctx, id, stage)
	}
}

// GetRubricDraft converts echo context to params.
func (w *ServerInterfaceWrapper) GetRubricDraft(ctx echo.Context) error {
	id, err := bindWorkflowID(ctx, indicatorRubric)
	if err != nil {
		return err
	}
	return w.Handler.GetRubricDraft(ctx, id)
}

// ExportStage converts echo context to params.
func (w *ServerInterfaceWrapper) ExportStage(ctx echo.Context) error {
	id, err := bindWorkflowID(ctx, indicatorExport)
	if err != nil {
		return err
	}

	var stage string
	err = runtime.BindStyledParameterWithOptions("simple", "stage", ctx.Param("stage"), &stage,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return withIndicator(indicatorExport, models.NewBadRequestError(fmt.Sprintf("Invalid format for parameter stage: %s", err)))
	}

	var params ExportStageParams
	if err := runtime.BindQueryParameter("form", true, false, "format", ctx.QueryParams(), &params.Format); err != nil {
		return withIndicator(indicatorExport, models.NewBadRequestError(fmt.Sprintf("Invalid format for parameter format: %s", err)))
	}

	return w.Handler.ExportStage(ctx, id, stage, params)
}

// ParseRubric converts echo context to params.
func (w *ServerInterfaceWrapper) ParseRubric(ctx echo.Context) error {
	return w.Handler.ParseRubric(ctx)
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the router.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the routes under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET(baseURL+"/workflow", wrapper.ListWorkflows)
	router.POST(baseURL+"/workflow", wrapper.CreateWorkflow)
	router.GET(baseURL+"/workflow/:id", wrapper.GetWorkflow)
	router.PATCH(baseURL+"/workflow/:id/step", wrapper.UpdateStep)
	for _, stage := range models.Steps[1:] {
		router.PATCH(baseURL+"/workflow/:id/"+string(stage), wrapper.submitStage(stage))
	}
	router.GET(baseURL+"/workflow/:id/rubric", wrapper.GetRubricDraft)
	router.GET(baseURL+"/workflow/:id/export/:stage", wrapper.ExportStage)
	router.POST(baseURL+"/rubric/parse", wrapper.ParseRubric)
}
