package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leaveflow/internal/app/server"
	"leaveflow/internal/platform/config"
	"leaveflow/internal/platform/seed"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
)

// clock is Thursday 2026-01-01 09:00 UTC.
var clock = time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *api.Error      `json:"error"`
	RequestID string          `json:"requestId"`
}

type testEnv struct {
	t   *testing.T
	app *server.App
	ts  *httptest.Server
}

func testSeed() seed.File {
	return seed.File{
		WeekendDays: []int{0, 6},
		Users: []seed.User{
			{ID: "hr-1", Name: "Hana", Role: "HR", CasualQuota: 12, SickQuota: 14},
			{ID: "md-1", Name: "Malik", Role: "MD", CasualQuota: 12, SickQuota: 14},
			{ID: "mgr-1", Name: "Mira", Role: "Manager", CasualQuota: 12, SickQuota: 14},
			{ID: "lead-1", Name: "Leo", Role: "TeamLead", SequentialApprovers: []string{"mgr-1"}, CasualQuota: 12, SickQuota: 14},
			{ID: "emp-1", Name: "Emma", Role: "Employee", SequentialApprovers: []string{"lead-1", "mgr-1"}, CasualQuota: 10, SickQuota: 14},
			{ID: "emp-2", Name: "Omar", Role: "Employee", CasualQuota: 10, SickQuota: 14},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		Addr:                  ":0",
		Environment:           "test",
		LogLevel:              "error",
		WeekendDays:           []int{0, 6},
		ShortLeaveHoursPerDay: 8,
		MetricsEnabled:        true,
		RateLimitPerMinute:    10000,
		MaxBodyBytes:          1 << 20,
	}
	app, err := server.New(context.Background(), cfg,
		server.WithLogger(zap.NewNop()),
		server.WithClock(func() time.Time { return clock }),
		server.WithSeed(testSeed()),
	)
	require.NoError(t, err)
	ts := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, app.Close())
	})
	return &testEnv{t: t, app: app, ts: ts}
}

func (e *testEnv) do(method, path, actor string, body any, headers ...string) (int, envelope) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(middleware.ActorHeader, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(e.t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
