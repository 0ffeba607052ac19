package apperror

import (
	"errors"
	"fmt"
)

type Code string

const (
	ErrInvalidRequest Code = "INVALID_REQUEST" // 400
	ErrNotFound       Code = "NOT_FOUND"       // 404
	ErrConflict       Code = "CONFLICT"        // 409
	ErrUnprocessable  Code = "UNPROCESSABLE"   // 422
	ErrInternal       Code = "INTERNAL"        // 500
)

// AppError is an error with a stable code and the HTTP status it maps to.
type AppError struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource.
func NewNotFound(resource, id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
	}
}

func NewConflict(msg string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewUnprocessable creates a 422 error for well-formed input that cannot be
// used, such as a paper list without publication dates.
func NewUnprocessable(msg string) *AppError {
	return &AppError{
		Code:    ErrUnprocessable,
		Status:  422,
		Message: msg,
	}
}

func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is reports whether err wraps an AppError with the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
