package apperror

import "net/http"

var (
	ErrInvalidInput = New(
		CodeInvalidInput,
		"the provided input is invalid",
		http.StatusBadRequest,
	)

	ErrForbidden = New(
		CodeForbidden,
		"actor is not allowed to perform this action",
		http.StatusForbidden,
	)

	ErrNotFound = New(
		CodeNotFound,
		"resource not found",
		http.StatusNotFound,
	)

	ErrConflict = New(
		CodeConflict,
		"resource was modified concurrently",
		http.StatusConflict,
	)

	ErrPreconditionFailed = New(
		CodePreconditionFailed,
		"operation not allowed in the current state",
		http.StatusPreconditionFailed,
	)

	ErrConfiguration = New(
		CodeConfiguration,
		"workflow configuration error",
		http.StatusUnprocessableEntity,
	)

	ErrInternal = New(
		CodeInternalError,
		"an unexpected error occurred",
		http.StatusInternalServerError,
	)
)
