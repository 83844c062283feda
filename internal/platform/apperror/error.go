package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string // Error code (e.g., NOT_FOUND)
	Message    string // User-facing message
	HTTPStatus int
	Err        error // Wrapped cause (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code and message so that wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap attaches a cause to a copy of the sentinel.
func Wrap(sentinel *AppError, err error) *AppError {
	if sentinel == nil {
		return nil
	}
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		HTTPStatus: sentinel.HTTPStatus,
		Err:        err,
	}
}

// Wrapf is Wrap with a formatted cause.
func Wrapf(sentinel *AppError, format string, args ...any) *AppError {
	return Wrap(sentinel, fmt.Errorf(format, args...))
}

// CodeOf returns the code of the first AppError in the chain, or
// CodeInternalError when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// StatusOf mirrors CodeOf for the HTTP status.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
