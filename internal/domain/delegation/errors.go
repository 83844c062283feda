package delegation

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var (
	ErrInvalidDelegation = apperror.New(
		apperror.CodeInvalidInput,
		"invalid delegation",
		http.StatusBadRequest,
	)
	ErrDelegationNotFound = apperror.New(
		apperror.CodeNotFound,
		"delegation not found",
		http.StatusNotFound,
	)
	ErrUserNotFound = apperror.New(
		apperror.CodeNotFound,
		"user not found",
		http.StatusNotFound,
	)
	ErrNotScheduled = apperror.New(
		apperror.CodePreconditionFailed,
		"only scheduled delegations can be cancelled",
		http.StatusPreconditionFailed,
	)
	ErrNotActive = apperror.New(
		apperror.CodePreconditionFailed,
		"only active delegations can be stopped",
		http.StatusPreconditionFailed,
	)
	ErrDelegationPast = apperror.New(
		apperror.CodePreconditionFailed,
		"past delegations are kept for audit and cannot be changed",
		http.StatusPreconditionFailed,
	)
)
