package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/metrics"
	"leaveflow/internal/requestctx"
)

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir := directory.New(zap.NewNop())
	_, err := dir.Add(directory.User{ID: "emp", Name: "Erin", Role: directory.RoleEmployee})
	require.NoError(t, err)
	_, err = dir.Add(directory.User{ID: "hr", Name: "Hana", Role: directory.RoleHR})
	require.NoError(t, err)
	return dir
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", seen)
}

func TestActorResolvesKnownUser(t *testing.T) {
	var got requestctx.Actor
	handler := Actor(testDirectory(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetActor(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "hr")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, requestctx.Actor{ID: "hr", Role: directory.RoleHR}, got)
}

func TestActorRejectsUnknownUser(t *testing.T) {
	called := false
	handler := Actor(testDirectory(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "ghost")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireRole(t *testing.T) {
	dir := testDirectory(t)
	handler := Actor(dir)(RequireRole(directory.RoleHR)(noContent()))

	anonymous := httptest.NewRecorder()
	handler.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "emp")
	employee := httptest.NewRecorder()
	handler.ServeHTTP(employee, req)
	assert.Equal(t, http.StatusForbidden, employee.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "hr")
	hr := httptest.NewRecorder()
	handler.ServeHTTP(hr, req)
	assert.Equal(t, http.StatusNoContent, hr.Code)
}

func TestRequireActor(t *testing.T) {
	handler := RequireActor(noContent())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(8)(noContent())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecureHeaders(true)(noContent()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	SecureHeaders(false)(noContent()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestLoggerRecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := RequestID(Logger(zap.New(core), metrics.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "/healthz", fields["path"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	calls := 0
	store := NewIdempotencyStore(time.Hour, nil)
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":1}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(body))
		req.Header.Set(IdempotencyKeyHeader, "k1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"a":1}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	replay := send(`{"a":1}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, `{"n":1}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	conflict := send(`{"a":2}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(time.Minute, func() time.Time { return now })
	require.NoError(t, store.Save("scope", "k", storedResponse{hash: "h1", status: http.StatusCreated}))

	_, found, err := store.Check("scope", "k", "h2")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.False(t, found)

	now = now.Add(2 * time.Minute)
	_, found, err = store.Check("scope", "k", "h2")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	entered := make(chan struct{})
	proceed := make(chan struct{})
	var calls atomic.Int32
	store := NewIdempotencyStore(time.Hour, nil)
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-proceed
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":1}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(`{"a":1}`))
		req.Header.Set(IdempotencyKeyHeader, "k1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- send() }()
	<-entered

	dup := send()
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Contains(t, dup.Body.String(), "idempotency_in_flight")

	close(proceed)
	assert.Equal(t, http.StatusCreated, (<-first).Code)

	replay := send()
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	calls := 0
	store := NewIdempotencyStore(time.Hour, nil)
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for _, want := range []int{http.StatusInternalServerError, http.StatusCreated} {
		req := httptest.NewRequest(http.MethodPost, "/leave/requests", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "k2")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyStoreSweepsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(time.Minute, func() time.Time { return now })
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save("scope", key, storedResponse{hash: "h", status: http.StatusCreated}))
	}
	require.Equal(t, 3, store.Len())

	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Save("scope", "d", storedResponse{hash: "h", status: http.StatusCreated}))
	assert.Equal(t, 1, store.Len())
}
