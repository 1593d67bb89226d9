package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// TaskErrorType categorizes different kinds of task failures
type TaskErrorType string

const (
	ValidationError TaskErrorType = "validation"
	ExecutionError  TaskErrorType = "execution"
	NotFoundError   TaskErrorType = "not_found"
	ConflictError   TaskErrorType = "conflict"
	InternalError   TaskErrorType = "internal"
)

// TaskError provides structured error information with HTTP status suggestions
type TaskError struct {
	Type    TaskErrorType  `json:"type"`
	Message string         `json:"message"`
	Code    int            `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func firstDetails(details []map[string]any) map[string]any {
	if len(details) > 0 {
		return details[0]
	}
	return nil
}

// Constructor functions for common error types
func NewValidationError(message string, details ...map[string]any) *TaskError {
	return &TaskError{
		Type:    ValidationError,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: firstDetails(details),
	}
}

func NewExecutionError(message string, details ...map[string]any) *TaskError {
	return &TaskError{
		Type:    ExecutionError,
		Message: message,
		Code:    http.StatusUnprocessableEntity,
		Details: firstDetails(details),
	}
}

func NewNotFoundError(message string) *TaskError {
	return &TaskError{
		Type:    NotFoundError,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func NewConflictError(message string, details ...map[string]any) *TaskError {
	return &TaskError{
		Type:    ConflictError,
		Message: message,
		Code:    http.StatusConflict,
		Details: firstDetails(details),
	}
}

func NewInternalError(message string) *TaskError {
	return &TaskError{
		Type:    InternalError,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// IsTaskError checks if an error is (or wraps) a TaskError and returns it
func IsTaskError(err error) (*TaskError, bool) {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr, true
	}
	return nil, false
}
