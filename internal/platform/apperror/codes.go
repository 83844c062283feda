package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput       = "INVALID_INPUT"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeConfiguration      = "CONFIGURATION_ERROR"

	// Server errors (5xx)
	CodeInternalError = "INTERNAL_ERROR"
)
