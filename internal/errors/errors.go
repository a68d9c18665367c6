package errors

import (
	stderrors "errors"
	"fmt"
)

// Error type constants
const (
	ValidationError    = "VALIDATION_ERROR"
	UnknownInput       = "UNKNOWN_INPUT"
	PreconditionFailed = "PRECONDITION_FAILED"
	ToolNotFound       = "TOOL_NOT_FOUND"
	PermissionDenied   = "PERMISSION_DENIED"
	ElevationFailed    = "ELEVATION_FAILED"
	StepFailed         = "STEP_FAILED"
	Cancelled          = "CANCELLED"
)

// RunError is a structured error surfaced in logs and the run result.
type RunError struct {
	Type      string `json:"type"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message"`
	StepID    string `json:"step_id,omitempty"`
	Retryable bool   `json:"retryable"`
	Hint      string `json:"hint,omitempty"`
}

func (e *RunError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Type, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Fatal reports whether the error stops the pipeline regardless of strict mode.
func (e *RunError) Fatal() bool {
	switch e.Type {
	case PreconditionFailed, ElevationFailed, Cancelled:
		return true
	}
	return false
}

func NewValidationError(msg, hint string) *RunError {
	return &RunError{Type: ValidationError, Message: msg, Hint: hint}
}

func NewPreconditionError(msg, hint string) *RunError {
	return &RunError{Type: PreconditionFailed, Message: msg, Hint: hint}
}

func NewStepError(stepID, msg, hint string) *RunError {
	return &RunError{Type: StepFailed, StepID: stepID, Message: msg, Hint: hint}
}

// Is reports whether err is a *RunError of the given type.
func Is(err error, typ string) bool {
	re, ok := As(err)
	return ok && re.Type == typ
}

// As unwraps err into a *RunError.
func As(err error) (*RunError, bool) {
	var re *RunError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}
