package notifications

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var ErrNotificationNotFound = apperror.New(
	apperror.CodeNotFound,
	"notification not found",
	http.StatusNotFound,
)
