package export

import (
	"bytes"
	"strings"
	"testing"

	"rubric-review/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecord() *models.WorkflowRecord {
	return &models.WorkflowRecord{
		ID: 42,
		TaskZeroInputs: &models.TaskZeroInputs{
			Domain:          "Physics",
			DifficultyScore: 3,
			Problem:         "Compute the period.\nUse SI units.",
		},
		TaskTwoResponses: &models.TaskTwoResponse{RubricItems: []models.RubricItem{
			{Name: "Units", CorrectScore: 2, IncorrectScore1: 0.5, TechnicalAccuracy: 4, DifferingAnswers: true},
			{Name: "Method", CorrectScore: 1},
		}},
		CurrentStep: models.StepTaskTwo,
	}
}

func TestBuild_MissingStage(t *testing.T) {
	_, err := Build(sampleRecord(), models.StepTaskThree)
	assert.True(t, models.IsNotFound(err))

	_, err = Build(sampleRecord(), models.Step("task-nine"))
	assert.Equal(t, models.ErrBadRequest, models.CodeOf(err))
}

func TestBuild_TaskZeroHeadings(t *testing.T) {
	doc, err := Build(sampleRecord(), models.StepTaskZero)
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "task-zero-submission.txt", doc.FileName(FormatText))
	assert.Equal(t, "task-zero-submission.yaml", doc.FileName(FormatYAML))
	require.Len(t, doc.Fields, 11)
	assert.Equal(t, Field{Heading: "Domain:", Value: "Physics"}, doc.Fields[0])
	assert.Equal(t, Field{Heading: "Difficulty Score:", Value: "3"}, doc.Fields[2])
	assert.Equal(t, "Correct Answer Rubric Test:", doc.Fields[8].Heading)
}

func TestRender_TextPlaceholderAndFooter(t *testing.T) {
	doc, err := Build(sampleRecord(), models.StepTaskZero)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc, FormatText, 1000))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Task 0 Submission\n"))
	assert.Contains(t, out, "Subdomain:\nNot provided\n")
	assert.Contains(t, out, "Problem:\nCompute the period.\nUse SI units.\n")
	assert.True(t, strings.HasSuffix(out, "Page 1 of 1\n"))
}

func TestPaginate_KeepsBlocksTogether(t *testing.T) {
	doc, err := Build(sampleRecord(), models.StepTaskTwo)
	require.NoError(t, err)

	pages := Paginate(doc, 10)
	require.Greater(t, len(pages), 1)
	for _, page := range pages {
		assert.LessOrEqual(t, len(page), 10)
	}

	// a three-line field block must never be broken
	for _, page := range pages {
		for i, line := range page {
			if line == "Correct Score:" {
				require.Less(t, i+1, len(page))
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc, FormatText, 10))
	assert.Contains(t, buf.String(), "Page 1 of ")
	assert.Contains(t, buf.String(), "Rubric Item 2 - Method:")
	assert.Contains(t, buf.String(), "Technical Accuracy:\n4\n")
}

func TestPaginate_SplitsOversizedBlock(t *testing.T) {
	doc := &Document{
		Title:  "Long",
		Stage:  models.StepTaskFour,
		Fields: []Field{{Heading: "Evaluate Rubrics Rationale:", Value: strings.Repeat("line\n", 12) + "end"}},
	}
	pages := Paginate(doc, 5)
	total := 0
	for _, page := range pages {
		assert.LessOrEqual(t, len(page), 5)
		total += len(page)
	}
	// title + blank + heading + 13 value lines + trailing blank
	assert.Equal(t, 17, total)
}

func TestRender_YAMLGroupsRubricItems(t *testing.T) {
	doc, err := Build(sampleRecord(), models.StepTaskTwo)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc, FormatYAML, 0))

	var decoded struct {
		WorkflowID int64  `yaml:"workflowId"`
		Stage      string `yaml:"stage"`
		Sections   []struct {
			Heading string  `yaml:"heading"`
			Fields  []Field `yaml:"fields"`
		} `yaml:"sections"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, int64(42), decoded.WorkflowID)
	assert.Equal(t, "task-two", decoded.Stage)
	require.Len(t, decoded.Sections, 2)
	assert.Equal(t, "Rubric Item 1 - Units:", decoded.Sections[0].Heading)
	assert.Equal(t, "Rubric Item 2 - Method:", decoded.Sections[1].Heading)
	assert.Len(t, decoded.Sections[0].Fields, 13)
	assert.Equal(t, Field{Heading: "Incorrect Score 1:", Value: "0.5"}, decoded.Sections[0].Fields[1])
	assert.Equal(t, Field{Heading: "Correct Rationale:", Value: NotProvided}, decoded.Sections[0].Fields[3])
	assert.Equal(t, Field{Heading: "Differing Answers:", Value: "Yes"}, decoded.Sections[0].Fields[9])
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("")
	assert.True(t, ok)
	assert.Equal(t, FormatText, f)

	f, ok = ParseFormat("yaml")
	assert.True(t, ok)
	assert.Equal(t, "application/yaml", f.ContentType())

	_, ok = ParseFormat("docx")
	assert.False(t, ok)
}
