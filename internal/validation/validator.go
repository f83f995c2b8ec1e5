// Package validation checks stage payloads against their schemas and fills
// in defaults for optional fields.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"rubric-review/backend/pkg/models"
)

// DefaultDifficultyScore is used when Task 0 omits the difficulty score.
const DefaultDifficultyScore = 1

// Mode selects how missing text fields are treated.
type Mode string

const (
	// ModeLenient fills missing optional text with "" and the Task 0
	// difficulty with DefaultDifficultyScore.
	ModeLenient Mode = "lenient"
	// ModeStrict requires the text fields the review process depends on.
	ModeStrict Mode = "strict"
)

// ParseMode converts a configuration value into a Mode. An empty value is lenient.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", fmt.Errorf("unknown validation mode %q", s)
}

// Validator validates and normalizes stage payloads. It is safe for
// concurrent use.
type Validator struct {
	mode     Mode
	ranges   *validator.Validate
	required *validator.Validate
}

// New creates a Validator for the given mode.
func New(mode Mode) *Validator {
	ranges := validator.New()
	ranges.RegisterTagNameFunc(jsonFieldName)

	required := validator.New()
	required.SetTagName("strict")
	required.RegisterTagNameFunc(jsonFieldName)

	return &Validator{mode: mode, ranges: ranges, required: required}
}

// Mode returns the validator's mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate decodes and validates payload for step, returning the normalized
// stage value (*models.TaskZeroInputs, *models.TaskOneResponse, ...).
func (v *Validator) Validate(step models.Step, payload []byte) (any, error) {
	switch step {
	case models.StepTaskZero:
		return v.TaskZero(payload)
	case models.StepTaskOne:
		return v.TaskOne(payload)
	case models.StepTaskTwo:
		return v.TaskTwo(payload)
	case models.StepTaskThree:
		return v.TaskThree(payload)
	case models.StepTaskFour:
		return v.TaskFour(payload)
	}
	return nil, models.NewBadRequestError(fmt.Sprintf("unknown step %q", step))
}

// TaskZero validates the initial submission.
func (v *Validator) TaskZero(payload []byte) (*models.TaskZeroInputs, error) {
	var in taskZeroInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	f := &filler{}
	out := in.fill(f, v.mode == ModeStrict)
	if err := v.check(out, f.errs); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskOne validates a Task 1 response.
func (v *Validator) TaskOne(payload []byte) (*models.TaskOneResponse, error) {
	var in taskOneInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	f := &filler{}
	out := in.fill(f)
	if err := v.check(out, f.errs); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskTwo validates a Task 2 response, including every rubric item.
func (v *Validator) TaskTwo(payload []byte) (*models.TaskTwoResponse, error) {
	var in taskTwoInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	f := &filler{}
	out := in.fill(f)
	if err := v.check(out, f.errs); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskThree validates a Task 3 response.
func (v *Validator) TaskThree(payload []byte) (*models.TaskThreeResponse, error) {
	var in taskThreeInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	f := &filler{}
	out := in.fill(f)
	if err := v.check(out, f.errs); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskFour validates a Task 4 response.
func (v *Validator) TaskFour(payload []byte) (*models.TaskFourResponse, error) {
	var in taskFourInput
	if err := decode(payload, &in); err != nil {
		return nil, err
	}
	f := &filler{}
	out := in.fill(f)
	if err := v.check(out, f.errs); err != nil {
		return nil, err
	}
	return out, nil
}

// check runs the range rules (and the required-text rules in strict mode).
// Fields already reported while filling are not reported again.
func (v *Validator) check(value any, reported []models.FieldError) error {
	details := reported
	seen := make(map[string]bool, len(reported))
	for _, m := range reported {
		seen[m.Field] = true
	}

	collect := func(err error) {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return
		}
		for _, fe := range verrs {
			d := toFieldError(fe)
			if seen[d.Field] {
				continue
			}
			seen[d.Field] = true
			details = append(details, d)
		}
	}

	collect(v.ranges.Struct(value))
	if v.mode == ModeStrict {
		collect(v.required.Struct(value))
	}

	if len(details) > 0 {
		return models.NewValidationError(details)
	}
	return nil
}

func decode(payload []byte, dst any) error {
	if errs := decodeAt(payload, dst, ""); len(errs) > 0 {
		return models.NewValidationError(errs)
	}
	return nil
}

// decodeAt unmarshals payload into dst. Type errors are reported with their
// JSON path under prefix, e.g. rubricItems[2].weighting.
func decodeAt(payload []byte, dst any, prefix string) []models.FieldError {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	err := json.Unmarshal(payload, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := joinPath(prefix, typeErr.Field)
		return []models.FieldError{{
			Field:   field,
			Code:    "type",
			Message: fmt.Sprintf("%s must be a %s, got %s", field, typeName(typeErr.Type), typeErr.Value),
		}}
	}
	return []models.FieldError{{
		Field:   joinPath(prefix, ""),
		Code:    "invalid_json",
		Message: err.Error(),
	}}
}

func joinPath(prefix, field string) string {
	switch {
	case prefix == "" && field == "":
		return "body"
	case prefix == "":
		return field
	case field == "":
		return prefix
	}
	return prefix + "." + field
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return "integer"
	case reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Slice:
		return "list"
	}
	return "object"
}

func toFieldError(fe validator.FieldError) models.FieldError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "gte":
		msg = fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		msg = fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
	return models.FieldError{Field: field, Code: fe.Tag(), Message: msg}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
