package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"leaveflow/internal/platform/apperror"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Named("http").Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FromError writes a domain error. AppErrors keep their status and code;
// anything else is reported as an internal error without its text.
func FromError(w http.ResponseWriter, err error, requestID string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus >= http.StatusInternalServerError {
		zap.L().Named("http").Error("request failed", zap.String("request_id", requestID), zap.Error(err))
		Fail(w, http.StatusInternalServerError, ErrorCode(apperror.CodeInternalError), "internal server error", requestID)
		return
	}
	Fail(w, appErr.HTTPStatus, ErrorCode(appErr.Code), appErr.Error(), requestID)
}

// ErrorCode renders an apperror code the way the envelope carries it.
func ErrorCode(code string) string {
	return strings.ToLower(code)
}
