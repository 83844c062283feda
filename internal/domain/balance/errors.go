package balance

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var (
	ErrAccountNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave balance not found",
		http.StatusNotFound,
	)
	ErrAccountExists = apperror.New(
		apperror.CodeConflict,
		"leave balance already opened",
		http.StatusConflict,
	)
	ErrInvalidQuantity = apperror.New(
		apperror.CodeInvalidInput,
		"leave quantity must not be negative",
		http.StatusBadRequest,
	)
	ErrInvalidType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave type",
		http.StatusBadRequest,
	)
	ErrInvalidNature = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave nature",
		http.StatusBadRequest,
	)
)
