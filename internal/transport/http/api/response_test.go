package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveflow/internal/platform/apperror"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "x"}, "req-1")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Nil(t, env.Error)
}

func TestFromErrorMapsAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, apperror.Wrapf(apperror.ErrConflict, "version 2"), "req-2")

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)
	assert.Contains(t, env.Error.Message, "version 2")
}

func TestFromErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, errors.New("disk on fire"), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.NotContains(t, env.Error.Message, "disk")
}

func TestFailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusBadRequest, "validation_error", "payload validation failed", map[string]any{"fields": []string{"a"}}, "")

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.NotNil(t, env.Error.Details)
}
