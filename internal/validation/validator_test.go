package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rubric-review/backend/pkg/models"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	env, ok := err.(*models.ErrorEnvelope)
	require.True(t, ok, "error type = %T", err)
	require.Equal(t, models.ErrValidationError, env.Code)

	var fields []string
	for _, d := range env.Details {
		fields = append(fields, d.Field)
	}
	return fields
}

func rubricItemJSON(name string, technicalAccuracy int) map[string]any {
	return map[string]any{
		"name":                   name,
		"correctScore":           2,
		"incorrectScore1":        0.5,
		"incorrectScore2":        0,
		"correctRationale":       "meets the criterion",
		"incorrectRationale1":    "partially",
		"incorrectRationale2":    "misses it",
		"technicalAccuracy":      technicalAccuracy,
		"relevanceNecessity":     3,
		"partialCreditStructure": 2,
		"differingAnswers":       true,
		"weighting":              4,
		"clarityObjectivity":     1,
		"differentiationPower":   2,
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLenient, m)

	m, err = ParseMode(" STRICT ")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, m)

	_, err = ParseMode("paranoid")
	assert.Error(t, err)
}

func TestTaskZero_LenientDefaults(t *testing.T) {
	v := New(ModeLenient)

	out, err := v.TaskZero([]byte(`{"expert_a_domain": "Physics"}`))
	require.NoError(t, err)
	assert.Equal(t, "Physics", out.Domain)
	assert.Equal(t, DefaultDifficultyScore, out.DifficultyScore)
	assert.Equal(t, "", out.Rubric)

	out, err = v.TaskZero(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.DifficultyScore)
}

func TestTaskZero_DifficultyRange(t *testing.T) {
	v := New(ModeLenient)

	_, err := v.TaskZero([]byte(`{"expert_a_difficulty_score": 6}`))
	assert.Equal(t, []string{"expert_a_difficulty_score"}, fieldsOf(t, err))

	_, err = v.TaskZero([]byte(`{"expert_a_difficulty_score": 0}`))
	assert.Equal(t, []string{"expert_a_difficulty_score"}, fieldsOf(t, err))
}

func TestTaskZero_StrictRequiresText(t *testing.T) {
	v := New(ModeStrict)

	_, err := v.TaskZero([]byte(`{"expert_a_domain": "Physics", "expert_a_difficulty_score": 2}`))
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "expert_a_subdomain")
	assert.Contains(t, fields, "expert_a_rubric")
	assert.NotContains(t, fields, "expert_a_domain")
	assert.NotContains(t, fields, "expert_a_difficulty_score")

	_, err = v.TaskZero([]byte(`{}`))
	assert.Contains(t, fieldsOf(t, err), "expert_a_difficulty_score")
}

func TestTaskOne_Ranges(t *testing.T) {
	v := New(ModeLenient)
	payload := map[string]any{
		"metadataQuality":       5,
		"domainCorrect":         true,
		"subdomainCorrect":      false,
		"difficultyScore":       0,
		"correctAnswerGrade":    1,
		"incorrectAnswer1Grade": 0.25,
		"incorrectAnswer2Grade": 0,
	}

	out, err := v.TaskOne(mustJSON(t, payload))
	require.NoError(t, err)
	assert.Equal(t, 5, out.MetadataQuality)
	assert.Equal(t, 0.25, out.IncorrectAnswer1Grade)
	assert.Equal(t, "", out.Suggestions)

	payload["correctAnswerGrade"] = 1.5
	payload["metadataQuality"] = 0
	_, err = v.TaskOne(mustJSON(t, payload))
	assert.ElementsMatch(t, []string{"metadataQuality", "correctAnswerGrade"}, fieldsOf(t, err))
}

func TestTaskOne_MissingRequired(t *testing.T) {
	v := New(ModeLenient)

	_, err := v.TaskOne([]byte(`{"metadataQuality": 3}`))
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "domainCorrect")
	assert.Contains(t, fields, "correctAnswerGrade")
	assert.NotContains(t, fields, "metadataQuality")
	assert.NotContains(t, fields, "quality")
}

func TestTaskTwo_ItemPaths(t *testing.T) {
	v := New(ModeLenient)
	payload := map[string]any{
		"rubricItems": []any{
			rubricItemJSON("Units", 2),
			rubricItemJSON("Sign", 5),
		},
	}

	_, err := v.TaskTwo(mustJSON(t, payload))
	assert.Equal(t, []string{"rubricItems[1].technicalAccuracy"}, fieldsOf(t, err))
}

func TestTaskTwo_EmptyNameRejected(t *testing.T) {
	v := New(ModeLenient)
	payload := map[string]any{"rubricItems": []any{rubricItemJSON("", 2)}}

	_, err := v.TaskTwo(mustJSON(t, payload))
	assert.Equal(t, []string{"rubricItems[0].name"}, fieldsOf(t, err))
}

func TestTaskTwo_MissingItemFields(t *testing.T) {
	v := New(ModeLenient)

	_, err := v.TaskTwo([]byte(`{"rubricItems": [{"name": "Units"}]}`))
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "rubricItems[0].correctScore")
	assert.Contains(t, fields, "rubricItems[0].differingAnswers")
	assert.NotContains(t, fields, "rubricItems[0].correctRationale")

	_, err = v.TaskTwo([]byte(`{}`))
	assert.Equal(t, []string{"rubricItems"}, fieldsOf(t, err))
}

func TestTaskTwo_StrictRationales(t *testing.T) {
	item := rubricItemJSON("Units", 2)
	item["incorrectRationale2"] = ""
	payload := mustJSON(t, map[string]any{"rubricItems": []any{item}})

	_, err := New(ModeLenient).TaskTwo(payload)
	require.NoError(t, err)

	_, err = New(ModeStrict).TaskTwo(payload)
	assert.Equal(t, []string{"rubricItems[0].incorrectRationale2"}, fieldsOf(t, err))
}

func TestTaskTwo_RoundTripPreservesOrder(t *testing.T) {
	v := New(ModeStrict)
	items := []any{
		rubricItemJSON("Zeta", 1),
		rubricItemJSON("Alpha", 4),
		rubricItemJSON("Alpha", 3),
		rubricItemJSON("Mu", 2),
	}
	in := mustJSON(t, map[string]any{"rubricItems": items})

	out, err := v.TaskTwo(in)
	require.NoError(t, err)

	reencoded := mustJSON(t, out)
	var got, want map[string]any
	require.NoError(t, json.Unmarshal(reencoded, &got))
	require.NoError(t, json.Unmarshal(in, &want))
	assert.Equal(t, want, got)

	require.Len(t, out.RubricItems, 4)
	assert.Equal(t, "Zeta", out.RubricItems[0].Name)
	assert.Equal(t, 3, out.RubricItems[2].TechnicalAccuracy)
}

func TestTaskThree_Ranges(t *testing.T) {
	v := New(ModeStrict)
	payload := map[string]any{
		"correctAnswerGrade":        4,
		"correctAnswerRationale":    "full marks",
		"incorrectAnswer1Grade":     2,
		"incorrectAnswer1Rationale": "half",
		"incorrectAnswer2Grade":     -1,
		"incorrectAnswer2Rationale": "none",
	}

	_, err := v.TaskThree(mustJSON(t, payload))
	assert.Equal(t, []string{"incorrectAnswer2Grade"}, fieldsOf(t, err))

	payload["incorrectAnswer2Grade"] = 0
	out, err := v.TaskThree(mustJSON(t, payload))
	require.NoError(t, err)
	assert.Equal(t, 4.0, out.CorrectAnswerGrade)
}

func TestTaskFour(t *testing.T) {
	v := New(ModeLenient)

	out, err := v.TaskFour([]byte(`{"overallRubricsCompleteness": 4, "overallRubricsClarity": 1, "overallRubricsFlexibility": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "", out.EvaluateRubricsRationale)

	_, err = v.TaskFour([]byte(`{"overallRubricsCompleteness": 5, "overallRubricsClarity": 1, "overallRubricsFlexibility": 2}`))
	assert.Equal(t, []string{"overallRubricsCompleteness"}, fieldsOf(t, err))
}

func TestDecode_Errors(t *testing.T) {
	v := New(ModeLenient)

	_, err := v.TaskFour([]byte(`{"overallRubricsCompleteness": "four"}`))
	assert.Equal(t, []string{"overallRubricsCompleteness"}, fieldsOf(t, err))

	_, err = v.TaskOne([]byte(`{"metadataQuality": "4"}`))
	assert.Equal(t, []string{"metadataQuality"}, fieldsOf(t, err))

	_, err = v.TaskOne([]byte(`{not json`))
	assert.Equal(t, []string{"body"}, fieldsOf(t, err))
}

func TestWholeNumbers(t *testing.T) {
	v := New(ModeLenient)

	out, err := v.TaskFour([]byte(`{"overallRubricsCompleteness": 4.0, "overallRubricsClarity": 1, "overallRubricsFlexibility": 2e0}`))
	require.NoError(t, err)
	assert.Equal(t, 4, out.OverallRubricsCompleteness)
	assert.Equal(t, 2, out.OverallRubricsFlexibility)

	_, err = v.TaskFour([]byte(`{"overallRubricsCompleteness": 2.5, "overallRubricsClarity": 1, "overallRubricsFlexibility": 2}`))
	require.Error(t, err)
	env := err.(*models.ErrorEnvelope)
	require.Len(t, env.Details, 1)
	assert.Equal(t, "overallRubricsCompleteness", env.Details[0].Field)
	assert.Equal(t, "integer", env.Details[0].Code)

	zero, err := v.TaskZero([]byte(`{"expert_a_difficulty_score": 3.0}`))
	require.NoError(t, err)
	assert.Equal(t, 3, zero.DifficultyScore)
}

func TestTaskTwo_ItemTypeErrorPath(t *testing.T) {
	v := New(ModeLenient)
	bad := rubricItemJSON("Sign", 2)
	bad["weighting"] = "heavy"
	half := rubricItemJSON("Units", 2)
	half["technicalAccuracy"] = 1.5
	payload := map[string]any{"rubricItems": []any{rubricItemJSON("Scale", 3), bad, half}}

	_, err := v.TaskTwo(mustJSON(t, payload))
	assert.Equal(t, []string{"rubricItems[1].weighting", "rubricItems[2].technicalAccuracy"}, fieldsOf(t, err))

	_, err = v.TaskTwo([]byte(`{"rubricItems": "none"}`))
	assert.Equal(t, []string{"rubricItems"}, fieldsOf(t, err))
}

func TestValidate_Dispatch(t *testing.T) {
	v := New(ModeLenient)

	out, err := v.Validate(models.StepTaskZero, []byte(`{}`))
	require.NoError(t, err)
	assert.IsType(t, &models.TaskZeroInputs{}, out)

	_, err = v.Validate(models.Step("task-nine"), []byte(`{}`))
	assert.Equal(t, models.ErrBadRequest, models.CodeOf(err))
}
