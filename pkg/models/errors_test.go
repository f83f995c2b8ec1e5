package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("load: %w", NewWorkflowNotFoundError(7))

	assert.Equal(t, ErrNotFound, CodeOf(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestErrorEnvelope_Error(t *testing.T) {
	err := NewValidationError([]FieldError{{Field: "metadataQuality", Code: "lte"}})
	assert.Equal(t, "VALIDATION_ERROR: One or more fields are invalid", err.Error())
	assert.Len(t, err.Details, 1)
}

func TestStep_Order(t *testing.T) {
	prev, ok := StepTaskTwo.Previous()
	assert.True(t, ok)
	assert.Equal(t, StepTaskOne, prev)

	_, ok = StepTaskZero.Previous()
	assert.False(t, ok)

	assert.Equal(t, "three", StepTaskThree.Word())
	assert.Equal(t, -1, Step("task-five").Index())

	s, ok := ParseStep("task-four")
	assert.True(t, ok)
	assert.Equal(t, StepTaskFour, s)
}

func TestWorkflowRecord_CompleteAndClone(t *testing.T) {
	rec := &WorkflowRecord{
		ID:                 1,
		TaskZeroInputs:     &TaskZeroInputs{Domain: "Physics", DifficultyScore: 3},
		TaskOneResponses:   &TaskOneResponse{MetadataQuality: 4},
		TaskTwoResponses:   &TaskTwoResponse{RubricItems: []RubricItem{{Name: "Units"}}},
		TaskThreeResponses: &TaskThreeResponse{},
		CurrentStep:        StepTaskThree,
	}
	assert.False(t, rec.Complete())
	assert.Equal(t, "task-three", rec.Status())

	rec.TaskFourResponses = &TaskFourResponse{OverallRubricsClarity: 2}
	assert.True(t, rec.Complete())
	assert.Equal(t, StatusComplete, rec.Status())

	clone := rec.Clone()
	clone.TaskTwoResponses.RubricItems[0].Name = "changed"
	clone.TaskZeroInputs.Domain = "changed"
	assert.Equal(t, "Units", rec.TaskTwoResponses.RubricItems[0].Name)
	assert.Equal(t, "Physics", rec.TaskZeroInputs.Domain)
}
