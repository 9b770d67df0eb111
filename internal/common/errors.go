package common

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/docverify/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// FatalStageError aborts a pipeline run. Stage names the step that failed.
type FatalStageError struct {
	Stage constants.Stage
	Cause error
}

func (e *FatalStageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *FatalStageError) Unwrap() error {
	return e.Cause
}

// NewFatalStageError wraps cause; a nil cause yields nil.
func NewFatalStageError(stage constants.Stage, cause error) error {
	if cause == nil {
		return nil
	}
	return &FatalStageError{Stage: stage, Cause: cause}
}

// FailedStage returns the stage named by a FatalStageError anywhere in err's chain.
func FailedStage(err error) (constants.Stage, bool) {
	var fse *FatalStageError
	if errors.As(err, &fse) {
		return fse.Stage, true
	}
	return "", false
}
