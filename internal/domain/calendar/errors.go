package calendar

import (
	"net/http"

	"leaveflow/internal/platform/apperror"
)

var (
	ErrInvalidRange = apperror.New(
		apperror.CodeInvalidInput,
		"end date before start date",
		http.StatusBadRequest,
	)
	ErrInvalidDate = apperror.New(
		apperror.CodeInvalidInput,
		"date must be YYYY-MM-DD or RFC3339",
		http.StatusBadRequest,
	)
	ErrInvalidClock = apperror.New(
		apperror.CodeInvalidInput,
		"time must be in HH:MM format",
		http.StatusBadRequest,
	)
	ErrInvalidWeekday = apperror.New(
		apperror.CodeInvalidInput,
		"weekday must be between 0 (Sunday) and 6 (Saturday)",
		http.StatusBadRequest,
	)
	ErrInvalidHoliday = apperror.New(
		apperror.CodeInvalidInput,
		"holiday requires a date and a name",
		http.StatusBadRequest,
	)
	ErrHolidayExists = apperror.New(
		apperror.CodeConflict,
		"a holiday already exists on this date",
		http.StatusConflict,
	)
	ErrHolidayNotFound = apperror.New(
		apperror.CodeNotFound,
		"holiday not found",
		http.StatusNotFound,
	)
)
