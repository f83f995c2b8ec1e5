package models

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrBadRequest           = "BAD_REQUEST"
	ErrNotFound             = "NOT_FOUND"
	ErrValidationError      = "VALIDATION_ERROR"
	ErrInvalidTransition    = "INVALID_TRANSITION"
	ErrStorageInconsistency = "STORAGE_INCONSISTENCY"
	ErrInternalError        = "INTERNAL_ERROR"
)

// ErrorEnvelope is the structured error returned by the service layer and
// rendered by every surface. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewWorkflowNotFoundError is the NOT_FOUND error for an unknown workflow id.
func NewWorkflowNotFoundError(id int64) *ErrorEnvelope {
	return NewNotFoundError(fmt.Sprintf("workflow %d not found", id))
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInvalidTransitionError returns an INVALID_TRANSITION error.
func NewInvalidTransitionError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidTransition, Message: msg}
}

// NewStorageInconsistencyError reports a record that disappeared between
// read and write.
func NewStorageInconsistencyError(id int64) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrStorageInconsistency,
		Message: fmt.Sprintf("workflow %d vanished during update", id),
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// CodeOf returns the envelope code carried by err, or "" for other errors.
func CodeOf(err error) string {
	var env *ErrorEnvelope
	if errors.As(err, &env) {
		return env.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND envelope.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrNotFound
}

// IsValidation reports whether err is a VALIDATION_ERROR envelope.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrValidationError
}
