package directory

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var (
	ErrUserNotFound = apperror.New(
		apperror.CodeNotFound,
		"user not found",
		http.StatusNotFound,
	)
	ErrUserExists = apperror.New(
		apperror.CodeConflict,
		"user already exists",
		http.StatusConflict,
	)
	ErrInvalidUser = apperror.New(
		apperror.CodeInvalidInput,
		"invalid user",
		http.StatusBadRequest,
	)
	ErrInvalidApprovers = apperror.New(
		apperror.CodeInvalidInput,
		"invalid sequential approvers",
		http.StatusBadRequest,
	)
)
