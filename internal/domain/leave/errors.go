package leave

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var (
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrInvalidRequest = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request",
		http.StatusBadRequest,
	)
	ErrInvalidEditStatus = apperror.New(
		apperror.CodeInvalidInput,
		"approval can only be edited to Approved, Rejected or Skipped",
		http.StatusBadRequest,
	)
	ErrVersionConflict = apperror.New(
		apperror.CodeConflict,
		"leave request was modified concurrently",
		http.StatusConflict,
	)
	ErrNotPending = apperror.New(
		apperror.CodePreconditionFailed,
		"leave request is not pending",
		http.StatusPreconditionFailed,
	)
	ErrNotCancellable = apperror.New(
		apperror.CodePreconditionFailed,
		"only pending or approved requests can be cancelled",
		http.StatusPreconditionFailed,
	)
	ErrCancelledImmutable = apperror.New(
		apperror.CodePreconditionFailed,
		"cancelled requests cannot be changed",
		http.StatusPreconditionFailed,
	)
	ErrNotCurrentApprover = apperror.New(
		apperror.CodeForbidden,
		"actor is not the current approver",
		http.StatusForbidden,
	)
	ErrOwnRequest = apperror.New(
		apperror.CodeForbidden,
		"actor cannot decide their own request",
		http.StatusForbidden,
	)
	ErrRequestHidden = apperror.New(
		apperror.CodeForbidden,
		"actor cannot view this leave request",
		http.StatusForbidden,
	)
	ErrCancelNotAllowed = apperror.New(
		apperror.CodeForbidden,
		"only the requester or a final authority can cancel",
		http.StatusForbidden,
	)
	ErrNotDecisionOwner = apperror.New(
		apperror.CodeForbidden,
		"only the approver or a final authority can edit this decision",
		http.StatusForbidden,
	)
	ErrFinalAuthorityRequired = apperror.New(
		apperror.CodeForbidden,
		"final authority required",
		http.StatusForbidden,
	)
	ErrChainEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"approver has no decision on this request",
		http.StatusNotFound,
	)
)
