// Package export renders a workflow stage as a downloadable document.
package export

import (
	"fmt"
	"strconv"

	"rubric-review/backend/pkg/models"

	"github.com/google/uuid"
)

// NotProvided replaces empty values in rendered documents.
const NotProvided = "Not provided"

// Format selects the document encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a query value to a Format. Empty selects text.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, true
	case FormatYAML:
		return FormatYAML, true
	}
	return "", false
}

// Extension is the file extension for the format.
func (f Format) Extension() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "txt"
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}

// Field is one heading with its value. A Field with Group set starts a new
// section and has no value line. A zero Field is a spacer.
type Field struct {
	Heading string `yaml:"heading"`
	Value   string `yaml:"value"`
	Group   bool   `yaml:"-"`
}

func (f Field) spacer() bool {
	return f.Heading == "" && f.Value == "" && !f.Group
}

// Document is a stage export ready to be rendered.
type Document struct {
	ID         string
	WorkflowID int64
	Stage      models.Step
	Title      string
	Fields     []Field
}

// FileName is the download name, e.g. task-two-submission.txt.
func (d *Document) FileName(format Format) string {
	return fmt.Sprintf("task-%s-submission.%s", d.Stage.Word(), format.Extension())
}

var titles = map[models.Step]string{
	models.StepTaskZero:  "Task 0 Submission",
	models.StepTaskOne:   "Task 1 Review",
	models.StepTaskTwo:   "Task 2 Rubric Grading",
	models.StepTaskThree: "Task 3 Answer Grading",
	models.StepTaskFour:  "Task 4 Rubric Evaluation",
}

// Build assembles the document for one stage of rec. It returns NOT_FOUND when
// the stage has no data yet.
func Build(rec *models.WorkflowRecord, stage models.Step) (*Document, error) {
	if stage.Index() < 0 {
		return nil, models.NewBadRequestError(fmt.Sprintf("unknown stage %q", stage))
	}
	if !rec.HasResponse(stage) {
		return nil, models.NewNotFoundError(fmt.Sprintf("workflow %d has no %s data", rec.ID, stage))
	}

	var fields []Field
	switch stage {
	case models.StepTaskZero:
		fields = taskZeroFields(rec.TaskZeroInputs)
	case models.StepTaskOne:
		fields = taskOneFields(rec.TaskOneResponses)
	case models.StepTaskTwo:
		fields = taskTwoFields(rec.TaskTwoResponses)
	case models.StepTaskThree:
		fields = taskThreeFields(rec.TaskThreeResponses)
	case models.StepTaskFour:
		fields = taskFourFields(rec.TaskFourResponses)
	}

	return &Document{
		ID:         uuid.NewString(),
		WorkflowID: rec.ID,
		Stage:      stage,
		Title:      titles[stage],
		Fields:     fields,
	}, nil
}

func taskZeroFields(in *models.TaskZeroInputs) []Field {
	return []Field{
		{Heading: "Domain:", Value: in.Domain},
		{Heading: "Subdomain:", Value: in.Subdomain},
		{Heading: "Difficulty Score:", Value: strconv.Itoa(in.DifficultyScore)},
		{Heading: "Problem:", Value: in.Problem},
		{Heading: "Rubric:", Value: in.Rubric},
		{Heading: "Correct Answer:", Value: in.Correct},
		{Heading: "Incorrect Answer 1:", Value: in.Incorrect1},
		{Heading: "Incorrect Answer 2:", Value: in.Incorrect2},
		{Heading: "Correct Answer Rubric Test:", Value: in.CorrectRubricTest},
		{Heading: "Incorrect Answer 1 Rubric Test:", Value: in.Incorrect1RubricTest},
		{Heading: "Incorrect Answer 2 Rubric Test:", Value: in.Incorrect2RubricTest},
	}
}

func taskOneFields(r *models.TaskOneResponse) []Field {
	return []Field{
		{Heading: "Metadata Quality:", Value: strconv.Itoa(r.MetadataQuality)},
		{Heading: "Domain Correct:", Value: yesNo(r.DomainCorrect)},
		{Heading: "Subdomain Correct:", Value: yesNo(r.SubdomainCorrect)},
		{Heading: "Difficulty Score:", Value: strconv.Itoa(r.DifficultyScore)},
		{Heading: "Quality:", Value: r.Quality},
		{Heading: "Suggestions:", Value: r.Suggestions},
		{Heading: "Correct Answer Grade:", Value: number(r.CorrectAnswerGrade)},
		{Heading: "Correct Answer Rationale:", Value: r.CorrectAnswerRationale},
		{Heading: "Incorrect Answer 1 Grade:", Value: number(r.IncorrectAnswer1Grade)},
		{Heading: "Incorrect Answer 1 Rationale:", Value: r.IncorrectAnswer1Rationale},
		{Heading: "Incorrect Answer 2 Grade:", Value: number(r.IncorrectAnswer2Grade)},
		{Heading: "Incorrect Answer 2 Rationale:", Value: r.IncorrectAnswer2Rationale},
	}
}

func taskTwoFields(r *models.TaskTwoResponse) []Field {
	fields := make([]Field, 0, len(r.RubricItems)*15)
	for i, item := range r.RubricItems {
		fields = append(fields,
			Field{Heading: fmt.Sprintf("Rubric Item %d - %s:", i+1, item.Name), Group: true},
			Field{Heading: "Correct Score:", Value: number(item.CorrectScore)},
			Field{Heading: "Incorrect Score 1:", Value: number(item.IncorrectScore1)},
			Field{Heading: "Incorrect Score 2:", Value: number(item.IncorrectScore2)},
			Field{Heading: "Correct Rationale:", Value: item.CorrectRationale},
			Field{Heading: "Incorrect Rationale 1:", Value: item.IncorrectRationale1},
			Field{Heading: "Incorrect Rationale 2:", Value: item.IncorrectRationale2},
			Field{Heading: "Technical Accuracy:", Value: strconv.Itoa(item.TechnicalAccuracy)},
			Field{Heading: "Relevance & Necessity:", Value: strconv.Itoa(item.RelevanceNecessity)},
			Field{Heading: "Partial Credit Structure:", Value: strconv.Itoa(item.PartialCreditStructure)},
			Field{Heading: "Differing Answers:", Value: yesNo(item.DifferingAnswers)},
			Field{Heading: "Weighting:", Value: strconv.Itoa(item.Weighting)},
			Field{Heading: "Clarity & Objectivity:", Value: strconv.Itoa(item.ClarityObjectivity)},
			Field{Heading: "Differentiation Power:", Value: strconv.Itoa(item.DifferentiationPower)},
			Field{},
		)
	}
	return fields
}

func taskThreeFields(r *models.TaskThreeResponse) []Field {
	return []Field{
		{Heading: "Correct Answer Grade:", Value: number(r.CorrectAnswerGrade)},
		{Heading: "Correct Answer Rationale:", Value: r.CorrectAnswerRationale},
		{Heading: "Incorrect Answer 1 Grade:", Value: number(r.IncorrectAnswer1Grade)},
		{Heading: "Incorrect Answer 1 Rationale:", Value: r.IncorrectAnswer1Rationale},
		{Heading: "Incorrect Answer 2 Grade:", Value: number(r.IncorrectAnswer2Grade)},
		{Heading: "Incorrect Answer 2 Rationale:", Value: r.IncorrectAnswer2Rationale},
	}
}

func taskFourFields(r *models.TaskFourResponse) []Field {
	return []Field{
		{Heading: "Overall Rubrics Completeness:", Value: strconv.Itoa(r.OverallRubricsCompleteness)},
		{Heading: "Overall Rubrics Clarity:", Value: strconv.Itoa(r.OverallRubricsClarity)},
		{Heading: "Overall Rubrics Flexibility:", Value: strconv.Itoa(r.OverallRubricsFlexibility)},
		{Heading: "Evaluate Rubrics Rationale:", Value: r.EvaluateRubricsRationale},
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
