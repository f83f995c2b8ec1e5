package validation

import (
	"encoding/json"
	"fmt"
	"math"

	"rubric-review/backend/pkg/models"
)

// Input shapes use pointers so that absent fields can be told apart from
// zero values before defaults are applied. Integer fields decode as float64
// so that 3.0 is accepted; whole() rejects 3.5.

type taskZeroInput struct {
	Domain               *string `json:"expert_a_domain"`
	Subdomain            *string `json:"expert_a_subdomain"`
	DifficultyScore      *float64    `json:"expert_a_difficulty_score"`
	Problem              *string `json:"expert_a_problem"`
	Rubric               *string `json:"expert_a_rubric"`
	Incorrect1           *string `json:"expert_a_incorrect_1"`
	Incorrect2           *string `json:"expert_a_incorrect_2"`
	Correct              *string `json:"expert_a_correct"`
	Incorrect1RubricTest *string `json:"expert_a_incorrect_1_rubric_test"`
	Incorrect2RubricTest *string `json:"expert_a_incorrect_2_rubric_test"`
	CorrectRubricTest    *string `json:"expert_a_correct_rubric_test"`
}

type taskOneInput struct {
	MetadataQuality           *float64     `json:"metadataQuality"`
	DomainCorrect             *bool    `json:"domainCorrect"`
	SubdomainCorrect          *bool    `json:"subdomainCorrect"`
	DifficultyScore           *float64     `json:"difficultyScore"`
	Quality                   *string  `json:"quality"`
	Suggestions               *string  `json:"suggestions"`
	CorrectAnswerGrade        *float64 `json:"correctAnswerGrade"`
	CorrectAnswerRationale    *string  `json:"correctAnswerRationale"`
	IncorrectAnswer1Grade     *float64 `json:"incorrectAnswer1Grade"`
	IncorrectAnswer1Rationale *string  `json:"incorrectAnswer1Rationale"`
	IncorrectAnswer2Grade     *float64 `json:"incorrectAnswer2Grade"`
	IncorrectAnswer2Rationale *string  `json:"incorrectAnswer2Rationale"`
}

type rubricItemInput struct {
	Name                   *string  `json:"name"`
	CorrectScore           *float64 `json:"correctScore"`
	IncorrectScore1        *float64 `json:"incorrectScore1"`
	IncorrectScore2        *float64 `json:"incorrectScore2"`
	CorrectRationale       *string  `json:"correctRationale"`
	IncorrectRationale1    *string  `json:"incorrectRationale1"`
	IncorrectRationale2    *string  `json:"incorrectRationale2"`
	TechnicalAccuracy      *float64     `json:"technicalAccuracy"`
	RelevanceNecessity     *float64     `json:"relevanceNecessity"`
	PartialCreditStructure *float64     `json:"partialCreditStructure"`
	DifferingAnswers       *bool    `json:"differingAnswers"`
	Weighting              *float64     `json:"weighting"`
	ClarityObjectivity     *float64     `json:"clarityObjectivity"`
	DifferentiationPower   *float64     `json:"differentiationPower"`
}

type taskTwoInput struct {
	RubricItems *[]json.RawMessage `json:"rubricItems"`
}

type taskThreeInput struct {
	CorrectAnswerGrade        *float64 `json:"correctAnswerGrade"`
	CorrectAnswerRationale    *string  `json:"correctAnswerRationale"`
	IncorrectAnswer1Grade     *float64 `json:"incorrectAnswer1Grade"`
	IncorrectAnswer1Rationale *string  `json:"incorrectAnswer1Rationale"`
	IncorrectAnswer2Grade     *float64 `json:"incorrectAnswer2Grade"`
	IncorrectAnswer2Rationale *string  `json:"incorrectAnswer2Rationale"`
}

type taskFourInput struct {
	OverallRubricsCompleteness *float64    `json:"overallRubricsCompleteness"`
	OverallRubricsClarity      *float64    `json:"overallRubricsClarity"`
	OverallRubricsFlexibility  *float64    `json:"overallRubricsFlexibility"`
	EvaluateRubricsRationale   *string `json:"evaluateRubricsRationale"`
}

// filler applies defaults and records fields that have none or hold a
// fractional value where a whole number is expected.
type filler struct {
	prefix string
	errs   []models.FieldError
}

func (f *filler) path(name string) string {
	if f.prefix == "" {
		return name
	}
	return f.prefix + "." + name
}

func (f *filler) require(name string) {
	f.errs = append(f.errs, models.FieldError{
		Field:   f.path(name),
		Code:    "required",
		Message: fmt.Sprintf("%s is required", f.path(name)),
	})
}

func (f *filler) text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (f *filler) integer(name string, p *float64) int {
	if p == nil {
		f.require(name)
		return 0
	}
	return f.whole(name, *p)
}

func (f *filler) integerOr(name string, p *float64, def int) int {
	if p == nil {
		return def
	}
	return f.whole(name, *p)
}

func (f *filler) whole(name string, v float64) int {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		f.errs = append(f.errs, models.FieldError{
			Field:   f.path(name),
			Code:    "integer",
			Message: fmt.Sprintf("%s must be a whole number", f.path(name)),
		})
		return 0
	}
	return int(v)
}

func (f *filler) number(name string, p *float64) float64 {
	if p == nil {
		f.require(name)
		return 0
	}
	return *p
}

func (f *filler) flag(name string, p *bool) bool {
	if p == nil {
		f.require(name)
		return false
	}
	return *p
}

func (in taskZeroInput) fill(f *filler, strict bool) *models.TaskZeroInputs {
	difficulty := f.integerOr("expert_a_difficulty_score", in.DifficultyScore, DefaultDifficultyScore)
	if strict && in.DifficultyScore == nil {
		f.require("expert_a_difficulty_score")
	}
	return &models.TaskZeroInputs{
		Domain:               f.text(in.Domain),
		Subdomain:            f.text(in.Subdomain),
		DifficultyScore:      difficulty,
		Problem:              f.text(in.Problem),
		Rubric:               f.text(in.Rubric),
		Incorrect1:           f.text(in.Incorrect1),
		Incorrect2:           f.text(in.Incorrect2),
		Correct:              f.text(in.Correct),
		Incorrect1RubricTest: f.text(in.Incorrect1RubricTest),
		Incorrect2RubricTest: f.text(in.Incorrect2RubricTest),
		CorrectRubricTest:    f.text(in.CorrectRubricTest),
	}
}

func (in taskOneInput) fill(f *filler) *models.TaskOneResponse {
	return &models.TaskOneResponse{
		MetadataQuality:           f.integer("metadataQuality", in.MetadataQuality),
		DomainCorrect:             f.flag("domainCorrect", in.DomainCorrect),
		SubdomainCorrect:          f.flag("subdomainCorrect", in.SubdomainCorrect),
		DifficultyScore:           f.integer("difficultyScore", in.DifficultyScore),
		Quality:                   f.text(in.Quality),
		Suggestions:               f.text(in.Suggestions),
		CorrectAnswerGrade:        f.number("correctAnswerGrade", in.CorrectAnswerGrade),
		CorrectAnswerRationale:    f.text(in.CorrectAnswerRationale),
		IncorrectAnswer1Grade:     f.number("incorrectAnswer1Grade", in.IncorrectAnswer1Grade),
		IncorrectAnswer1Rationale: f.text(in.IncorrectAnswer1Rationale),
		IncorrectAnswer2Grade:     f.number("incorrectAnswer2Grade", in.IncorrectAnswer2Grade),
		IncorrectAnswer2Rationale: f.text(in.IncorrectAnswer2Rationale),
	}
}

func (in rubricItemInput) fill(f *filler) models.RubricItem {
	return models.RubricItem{
		Name:                   f.text(in.Name),
		CorrectScore:           f.number("correctScore", in.CorrectScore),
		IncorrectScore1:        f.number("incorrectScore1", in.IncorrectScore1),
		IncorrectScore2:        f.number("incorrectScore2", in.IncorrectScore2),
		CorrectRationale:       f.text(in.CorrectRationale),
		IncorrectRationale1:    f.text(in.IncorrectRationale1),
		IncorrectRationale2:    f.text(in.IncorrectRationale2),
		TechnicalAccuracy:      f.integer("technicalAccuracy", in.TechnicalAccuracy),
		RelevanceNecessity:     f.integer("relevanceNecessity", in.RelevanceNecessity),
		PartialCreditStructure: f.integer("partialCreditStructure", in.PartialCreditStructure),
		DifferingAnswers:       f.flag("differingAnswers", in.DifferingAnswers),
		Weighting:              f.integer("weighting", in.Weighting),
		ClarityObjectivity:     f.integer("clarityObjectivity", in.ClarityObjectivity),
		DifferentiationPower:   f.integer("differentiationPower", in.DifferentiationPower),
	}
}

func (in taskTwoInput) fill(f *filler) *models.TaskTwoResponse {
	if in.RubricItems == nil {
		f.require("rubricItems")
		return &models.TaskTwoResponse{RubricItems: []models.RubricItem{}}
	}
	items := make([]models.RubricItem, 0, len(*in.RubricItems))
	for i, raw := range *in.RubricItems {
		sub := &filler{prefix: fmt.Sprintf("rubricItems[%d]", i)}
		var item rubricItemInput
		// A type error leaves the other fields decoded, so the item is kept
		// to keep later indices aligned.
		typeErrs := decodeAt(raw, &item, sub.prefix)
		items = append(items, item.fill(sub))
		f.errs = append(f.errs, typeErrs...)
		for _, e := range sub.errs {
			if !hasField(typeErrs, e.Field) {
				f.errs = append(f.errs, e)
			}
		}
	}
	return &models.TaskTwoResponse{RubricItems: items}
}

func (in taskThreeInput) fill(f *filler) *models.TaskThreeResponse {
	return &models.TaskThreeResponse{
		CorrectAnswerGrade:        f.number("correctAnswerGrade", in.CorrectAnswerGrade),
		CorrectAnswerRationale:    f.text(in.CorrectAnswerRationale),
		IncorrectAnswer1Grade:     f.number("incorrectAnswer1Grade", in.IncorrectAnswer1Grade),
		IncorrectAnswer1Rationale: f.text(in.IncorrectAnswer1Rationale),
		IncorrectAnswer2Grade:     f.number("incorrectAnswer2Grade", in.IncorrectAnswer2Grade),
		IncorrectAnswer2Rationale: f.text(in.IncorrectAnswer2Rationale),
	}
}

func (in taskFourInput) fill(f *filler) *models.TaskFourResponse {
	return &models.TaskFourResponse{
		OverallRubricsCompleteness: f.integer("overallRubricsCompleteness", in.OverallRubricsCompleteness),
		OverallRubricsClarity:      f.integer("overallRubricsClarity", in.OverallRubricsClarity),
		OverallRubricsFlexibility:  f.integer("overallRubricsFlexibility", in.OverallRubricsFlexibility),
		EvaluateRubricsRationale:   f.text(in.EvaluateRubricsRationale),
	}
}

func hasField(errs []models.FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
