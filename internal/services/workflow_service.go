// Package services holds the workflow stage transition logic shared by the
// REST API, the MCP tool server and the CLIs.
package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rubric-review/backend/internal/export"
	"rubric-review/backend/internal/logging"
	"rubric-review/backend/internal/metrics"
	"rubric-review/backend/internal/repository"
	"rubric-review/backend/internal/rubric"
	"rubric-review/backend/internal/validation"
	"rubric-review/backend/pkg/models"
)

const instrumentationName = "rubric-review/backend/internal/services"

// WorkflowService validates stage payloads and applies them to stored
// workflow records.
type WorkflowService struct {
	store        repository.WorkflowStore
	validator    *validation.Validator
	logger       *logging.Logger
	metrics      *metrics.Metrics
	enforceOrder bool
	linesPerPage int

	tracer      trace.Tracer
	transitions metric.Int64Counter
}

// Option configures a WorkflowService.
type Option func(*WorkflowService)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *WorkflowService) { s.logger = l }
}

// WithMetrics enables Prometheus recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *WorkflowService) { s.metrics = m }
}

// WithEnforceOrder makes a stage submission require the previous stage's
// response.
func WithEnforceOrder(enforce bool) Option {
	return func(s *WorkflowService) { s.enforceOrder = enforce }
}

// WithLinesPerPage sets the page size of text exports.
func WithLinesPerPage(n int) Option {
	return func(s *WorkflowService) { s.linesPerPage = n }
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(store repository.WorkflowStore, v *validation.Validator, opts ...Option) *WorkflowService {
	s := &WorkflowService{
		store:        store,
		validator:    v,
		logger:       logging.NewNop(),
		linesPerPage: export.DefaultLinesPerPage,
		tracer:       otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"rubric.stage.transitions",
		metric.WithDescription("Stage submissions applied to workflow records"),
	)
	if err != nil {
		s.logger.Warn("failed to create transition counter", "error", err)
	}
	s.transitions = counter
	return s
}

// EnforcesOrder reports whether stage ordering is enforced.
func (s *WorkflowService) EnforcesOrder() bool {
	return s.enforceOrder
}

// CreateWorkflow validates a Task 0 payload and stores it as a new workflow.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, payload []byte) (rec *models.WorkflowRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "WorkflowService.CreateWorkflow")
	defer func() { endSpan(span, err) }()

	inputs, err := s.validator.TaskZero(payload)
	if err != nil {
		s.recordValidation(models.StepTaskZero, err)
		return nil, err
	}

	start := time.Now()
	rec, err = s.store.Create(ctx, inputs)
	s.observe("create", start)
	if err != nil {
		return nil, s.internal("create workflow", err)
	}

	span.SetAttributes(attribute.Int64("workflow.id", rec.ID))
	s.logger.Info("workflow created", "id", rec.ID, "domain", inputs.Domain)
	if s.metrics != nil {
		s.metrics.RecordWorkflowCreated()
	}
	return rec, nil
}

// GetWorkflow returns the record with the given id.
func (s *WorkflowService) GetWorkflow(ctx context.Context, id int64) (rec *models.WorkflowRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "WorkflowService.GetWorkflow",
		trace.WithAttributes(attribute.Int64("workflow.id", id)))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	rec, err = s.store.Get(ctx, id)
	s.observe("get", start)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, s.internal("get workflow", err)
	}
	return rec, nil
}

// ListWorkflows returns records ordered by id.
func (s *WorkflowService) ListWorkflows(ctx context.Context, limit, offset int) ([]*models.WorkflowRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	start := time.Now()
	recs, err := s.store.List(ctx, limit, offset)
	s.observe("list", start)
	if err != nil {
		return nil, s.internal("list workflows", err)
	}
	return recs, nil
}

// SubmitStage validates payload for stage and stores it on workflow id.
//
// An unknown id fails with NOT_FOUND before the payload is looked at. Task 0
// is immutable once created. currentStep only ever moves forward.
func (s *WorkflowService) SubmitStage(ctx context.Context, id int64, stage models.Step, payload []byte) (rec *models.WorkflowRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "WorkflowService.SubmitStage", trace.WithAttributes(
		attribute.Int64("workflow.id", id),
		attribute.String("workflow.stage", string(stage)),
	))
	defer func() {
		endSpan(span, err)
		s.recordSubmission(stage, err)
	}()

	if stage.Index() < 0 {
		return nil, models.NewBadRequestError(fmt.Sprintf("unknown stage %q", stage))
	}
	if _, err = s.GetWorkflow(ctx, id); err != nil {
		return nil, err
	}
	if stage == models.StepTaskZero {
		return nil, models.NewInvalidTransitionError("task-zero inputs cannot be changed after creation")
	}

	value, err := s.validator.Validate(stage, payload)
	if err != nil {
		s.recordValidation(stage, err)
		return nil, err
	}

	var completedNow bool
	start := time.Now()
	rec, err = s.store.UpdatePartial(ctx, id, func(w *models.WorkflowRecord) error {
		if s.enforceOrder {
			if prev, ok := stage.Previous(); ok && !w.HasResponse(prev) {
				return models.NewInvalidTransitionError(
					fmt.Sprintf("%s requires a %s response first", stage, prev))
			}
		}
		wasComplete := w.Complete()
		apply(w, value)
		if stage.Index() > w.CurrentStep.Index() {
			w.CurrentStep = stage
		}
		completedNow = !wasComplete && w.Complete()
		return nil
	})
	s.observe("update", start)
	if err != nil {
		if models.IsNotFound(err) {
			s.logger.Error("workflow vanished during update",
				"id", id, "stage", stage, "code", models.ErrStorageInconsistency)
			return nil, models.NewWorkflowNotFoundError(id)
		}
		if models.CodeOf(err) != "" {
			return nil, err
		}
		return nil, s.internal("update workflow", err)
	}

	if s.transitions != nil {
		s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(stage))))
	}
	s.logger.Info("stage submitted", "id", id, "stage", stage, "current_step", rec.CurrentStep)
	if completedNow {
		s.logger.Info("workflow complete", "id", id)
		if s.metrics != nil {
			s.metrics.RecordWorkflowCompleted()
		}
	}
	return rec, nil
}

// SetStep moves currentStep directly. Only the step name is checked.
func (s *WorkflowService) SetStep(ctx context.Context, id int64, step string) (rec *models.WorkflowRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "WorkflowService.SetStep", trace.WithAttributes(
		attribute.Int64("workflow.id", id),
		attribute.String("workflow.step", step),
	))
	defer func() { endSpan(span, err) }()

	target, ok := models.ParseStep(step)
	if !ok {
		return nil, models.NewBadRequestError(fmt.Sprintf("unknown step %q", step))
	}

	start := time.Now()
	rec, err = s.store.UpdatePartial(ctx, id, func(w *models.WorkflowRecord) error {
		w.CurrentStep = target
		return nil
	})
	s.observe("update", start)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, s.internal("set step", err)
	}
	s.logger.Info("step set", "id", id, "step", target)
	return rec, nil
}

// RubricDraft returns the Task 2 item list for a workflow: previously
// submitted items if any, otherwise defaults seeded from the Task 0 rubric.
func (s *WorkflowService) RubricDraft(ctx context.Context, id int64) (*rubric.Draft, error) {
	rec, err := s.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	var names []string
	if rec.TaskZeroInputs != nil {
		names = rubric.ParseNames(rec.TaskZeroInputs.Rubric).Names
	}
	if rec.TaskTwoResponses != nil {
		return rubric.Restore(names, rec.TaskTwoResponses.RubricItems), nil
	}
	return rubric.NewDraft(names), nil
}

// ExportResult is a rendered stage document.
type ExportResult struct {
	FileName    string
	ContentType string
	Body        []byte
}

// Export renders one stage of a workflow as a downloadable document.
func (s *WorkflowService) Export(ctx context.Context, id int64, stage models.Step, format export.Format) (res *ExportResult, err error) {
	ctx, span := s.tracer.Start(ctx, "WorkflowService.Export", trace.WithAttributes(
		attribute.Int64("workflow.id", id),
		attribute.String("workflow.stage", string(stage)),
		attribute.String("export.format", string(format)),
	))
	defer func() { endSpan(span, err) }()

	rec, err := s.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := export.Build(rec, stage)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err = export.Render(&buf, doc, format, s.linesPerPage); err != nil {
		return nil, s.internal("render export", err)
	}
	if s.metrics != nil {
		s.metrics.RecordExport(string(stage), string(format))
	}
	return &ExportResult{
		FileName:    doc.FileName(format),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

// Ping checks the backing store.
func (s *WorkflowService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func apply(w *models.WorkflowRecord, value any) {
	switch v := value.(type) {
	case *models.TaskOneResponse:
		w.TaskOneResponses = v
	case *models.TaskTwoResponse:
		w.TaskTwoResponses = v
	case *models.TaskThreeResponse:
		w.TaskThreeResponses = v
	case *models.TaskFourResponse:
		w.TaskFourResponses = v
	}
}

func (s *WorkflowService) internal(op string, err error) error {
	s.logger.Error(op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *WorkflowService) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStore(op, time.Since(start))
	}
}

func (s *WorkflowService) recordValidation(stage models.Step, err error) {
	if s.metrics != nil && models.IsValidation(err) {
		s.metrics.RecordValidationFailure(stageLabel(stage))
	}
}

func (s *WorkflowService) recordSubmission(stage models.Step, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = models.CodeOf(err)
		if outcome == "" {
			outcome = models.ErrInternalError
		}
	}
	s.metrics.RecordStageSubmission(stageLabel(stage), outcome)
}

// stageLabel bounds the metric label set to the five known stages.
func stageLabel(stage models.Step) string {
	if stage.Index() < 0 {
		return "unknown"
	}
	return string(stage)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
