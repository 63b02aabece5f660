package common

import (
	"errors"
	"fmt"
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

// Common application errors.
//
// Loader-level and commit-level errors propagate to the caller; everything
// that goes wrong mid-extraction is recorded as flag/confidence data on the
// draft instead of being raised.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrUnreadableDocument = errors.New("no extractable text in document")
	ErrValidation         = errors.New("validation failed")
	ErrStaleTicket        = errors.New("stale ticket version")
	ErrTerminalState      = errors.New("ticket is in a terminal state")
	ErrCommitConflict     = errors.New("ticket commit conflict")
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
