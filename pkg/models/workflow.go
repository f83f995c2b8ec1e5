package models

import (
	"time"
)

// Step names one stage of the review workflow.
type Step string

const (
	StepTaskZero  Step = "task-zero"
	StepTaskOne   Step = "task-one"
	StepTaskTwo   Step = "task-two"
	StepTaskThree Step = "task-three"
	StepTaskFour  Step = "task-four"
)

// StatusComplete is reported by WorkflowRecord.Status once every stage has a response.
const StatusComplete = "complete"

// Steps lists the stages in workflow order.
var Steps = []Step{StepTaskZero, StepTaskOne, StepTaskTwo, StepTaskThree, StepTaskFour}

// ParseStep returns the Step for name, or false if name is not a stage.
func ParseStep(name string) (Step, bool) {
	for _, s := range Steps {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Index is the zero-based position of the step in Steps, or -1.
func (s Step) Index() int {
	for i, candidate := range Steps {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Previous returns the stage before s. The first stage has no predecessor.
func (s Step) Previous() (Step, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return Steps[i-1], true
}

// Word is the spelled-out stage number used in file names ("zero", "one", ...).
func (s Step) Word() string {
	return string(s)[len("task-"):]
}

// WorkflowRecord is one end-to-end instance of the five-stage review process.
type WorkflowRecord struct {
	ID                 int64              `json:"id"`
	TaskZeroInputs     *TaskZeroInputs    `json:"taskZeroInputs"`
	TaskOneResponses   *TaskOneResponse   `json:"taskOneResponses"`
	TaskTwoResponses   *TaskTwoResponse   `json:"taskTwoResponses"`
	TaskThreeResponses *TaskThreeResponse `json:"taskThreeResponses"`
	TaskFourResponses  *TaskFourResponse  `json:"taskFourResponses"`
	CurrentStep        Step               `json:"currentStep"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// HasResponse reports whether the stage's payload has been recorded.
func (w *WorkflowRecord) HasResponse(step Step) bool {
	switch step {
	case StepTaskZero:
		return w.TaskZeroInputs != nil
	case StepTaskOne:
		return w.TaskOneResponses != nil
	case StepTaskTwo:
		return w.TaskTwoResponses != nil
	case StepTaskThree:
		return w.TaskThreeResponses != nil
	case StepTaskFour:
		return w.TaskFourResponses != nil
	}
	return false
}

// Complete is true once Task 0 and all four responses are present.
func (w *WorkflowRecord) Complete() bool {
	for _, s := range Steps {
		if !w.HasResponse(s) {
			return false
		}
	}
	return true
}

// Status returns "complete" for finished workflows and the current step otherwise.
func (w *WorkflowRecord) Status() string {
	if w.Complete() {
		return StatusComplete
	}
	return string(w.CurrentStep)
}

// Clone returns a deep copy so stores never hand out shared state.
func (w *WorkflowRecord) Clone() *WorkflowRecord {
	c := *w
	if w.TaskZeroInputs != nil {
		v := *w.TaskZeroInputs
		c.TaskZeroInputs = &v
	}
	if w.TaskOneResponses != nil {
		v := *w.TaskOneResponses
		c.TaskOneResponses = &v
	}
	if w.TaskTwoResponses != nil {
		items := make([]RubricItem, len(w.TaskTwoResponses.RubricItems))
		copy(items, w.TaskTwoResponses.RubricItems)
		c.TaskTwoResponses = &TaskTwoResponse{RubricItems: items}
	}
	if w.TaskThreeResponses != nil {
		v := *w.TaskThreeResponses
		c.TaskThreeResponses = &v
	}
	if w.TaskFourResponses != nil {
		v := *w.TaskFourResponses
		c.TaskFourResponses = &v
	}
	return &c
}

// TaskZeroInputs is the expert's initial submission.
type TaskZeroInputs struct {
	Domain               string `json:"expert_a_domain" strict:"required"`
	Subdomain            string `json:"expert_a_subdomain" strict:"required"`
	DifficultyScore      int    `json:"expert_a_difficulty_score" validate:"gte=1,lte=5"`
	Problem              string `json:"expert_a_problem" strict:"required"`
	Rubric               string `json:"expert_a_rubric" strict:"required"`
	Incorrect1           string `json:"expert_a_incorrect_1" strict:"required"`
	Incorrect2           string `json:"expert_a_incorrect_2" strict:"required"`
	Correct              string `json:"expert_a_correct" strict:"required"`
	Incorrect1RubricTest string `json:"expert_a_incorrect_1_rubric_test" strict:"required"`
	Incorrect2RubricTest string `json:"expert_a_incorrect_2_rubric_test" strict:"required"`
	CorrectRubricTest    string `json:"expert_a_correct_rubric_test" strict:"required"`
}

// TaskOneResponse reviews the Task 0 metadata and grades the three answers.
type TaskOneResponse struct {
	MetadataQuality           int     `json:"metadataQuality" validate:"gte=1,lte=5"`
	DomainCorrect             bool    `json:"domainCorrect"`
	SubdomainCorrect          bool    `json:"subdomainCorrect"`
	DifficultyScore           int     `json:"difficultyScore" validate:"gte=0,lte=5"`
	Quality                   string  `json:"quality"`
	Suggestions               string  `json:"suggestions"`
	CorrectAnswerGrade        float64 `json:"correctAnswerGrade" validate:"gte=0,lte=1"`
	CorrectAnswerRationale    string  `json:"correctAnswerRationale"`
	IncorrectAnswer1Grade     float64 `json:"incorrectAnswer1Grade" validate:"gte=0,lte=1"`
	IncorrectAnswer1Rationale string  `json:"incorrectAnswer1Rationale"`
	IncorrectAnswer2Grade     float64 `json:"incorrectAnswer2Grade" validate:"gte=0,lte=1"`
	IncorrectAnswer2Rationale string  `json:"incorrectAnswer2Rationale"`
}

// RubricItem is one grading criterion scored against the three answers.
type RubricItem struct {
	Name                   string  `json:"name" validate:"required"`
	CorrectScore           float64 `json:"correctScore" validate:"gte=0,lte=2"`
	IncorrectScore1        float64 `json:"incorrectScore1" validate:"gte=0,lte=2"`
	IncorrectScore2        float64 `json:"incorrectScore2" validate:"gte=0,lte=2"`
	CorrectRationale       string  `json:"correctRationale" strict:"required"`
	IncorrectRationale1    string  `json:"incorrectRationale1" strict:"required"`
	IncorrectRationale2    string  `json:"incorrectRationale2" strict:"required"`
	TechnicalAccuracy      int     `json:"technicalAccuracy" validate:"gte=1,lte=4"`
	RelevanceNecessity     int     `json:"relevanceNecessity" validate:"gte=1,lte=4"`
	PartialCreditStructure int     `json:"partialCreditStructure" validate:"gte=1,lte=4"`
	DifferingAnswers       bool    `json:"differingAnswers"`
	Weighting              int     `json:"weighting" validate:"gte=1,lte=4"`
	ClarityObjectivity     int     `json:"clarityObjectivity" validate:"gte=1,lte=4"`
	DifferentiationPower   int     `json:"differentiationPower" validate:"gte=1,lte=4"`
}

// TaskTwoResponse grades each rubric item. Item order is significant.
type TaskTwoResponse struct {
	RubricItems []RubricItem `json:"rubricItems" validate:"dive" strict:"dive"`
}

// TaskThreeResponse re-grades the answers on a 0-4 scale.
type TaskThreeResponse struct {
	CorrectAnswerGrade        float64 `json:"correctAnswerGrade" validate:"gte=0,lte=4"`
	CorrectAnswerRationale    string  `json:"correctAnswerRationale" strict:"required"`
	IncorrectAnswer1Grade     float64 `json:"incorrectAnswer1Grade" validate:"gte=0,lte=4"`
	IncorrectAnswer1Rationale string  `json:"incorrectAnswer1Rationale" strict:"required"`
	IncorrectAnswer2Grade     float64 `json:"incorrectAnswer2Grade" validate:"gte=0,lte=4"`
	IncorrectAnswer2Rationale string  `json:"incorrectAnswer2Rationale" strict:"required"`
}

// TaskFourResponse rates the rubric as a whole.
type TaskFourResponse struct {
	OverallRubricsCompleteness int    `json:"overallRubricsCompleteness" validate:"gte=1,lte=4"`
	OverallRubricsClarity      int    `json:"overallRubricsClarity" validate:"gte=1,lte=4"`
	OverallRubricsFlexibility  int    `json:"overallRubricsFlexibility" validate:"gte=1,lte=4"`
	EvaluateRubricsRationale   string `json:"evaluateRubricsRationale"`
}
