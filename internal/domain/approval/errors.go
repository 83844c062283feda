package approval

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var (
	// ErrNoApprover means the routing rules ran out of candidates. Requests are
	// never approved implicitly; the directory has to be fixed.
	ErrNoApprover = apperror.New(
		apperror.CodeConfiguration,
		"no approver could be resolved",
		http.StatusUnprocessableEntity,
	)
	ErrFinalNotPermitted = apperror.New(
		apperror.CodePreconditionFailed,
		"role cannot take a final decision",
		http.StatusPreconditionFailed,
	)
)
