package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/events"
	"leaveflow/internal/platform/config"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LeaveEvent
}

func (p *recordingPublisher) PublishLeaveEvent(_ context.Context, evt events.LeaveEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.EventType)
	}
	return out
}

func fixedClock() time.Time {
	return time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
}

func testConfig() config.Config {
	return config.Config{
		Addr:                  ":0",
		Environment:           "test",
		LogLevel:              "error",
		SeedFile:              "../../../config/seed.yaml",
		WeekendDays:           []int{5, 6},
		ShortLeaveHoursPerDay: 8,
		MetricsEnabled:        true,
		RateLimitPerMinute:    1000,
		MaxBodyBytes:          1 << 20,
	}
}

func TestNewLoadsSeedFile(t *testing.T) {
	app, err := New(context.Background(), testConfig(), WithLogger(zap.NewNop()), WithClock(fixedClock))
	require.NoError(t, err)
	defer app.Close()

	assert.Len(t, app.Directory.List(), 6)
	assert.Equal(t, []int{0, 6}, app.Calendar.WeekendDays())
	assert.Len(t, app.Calendar.Holidays(), 2)
	_, err = app.Ledger.Get("emp-1")
	assert.NoError(t, err)
}

func TestNewFailsOnMissingSeedFile(t *testing.T) {
	cfg := testConfig()
	cfg.SeedFile = "does-not-exist.yaml"
	_, err := New(context.Background(), cfg, WithLogger(zap.NewNop()), WithClock(fixedClock))
	assert.Error(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	app, err := New(context.Background(), testConfig(), WithLogger(zap.NewNop()), WithClock(fixedClock))
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "leaveflow_http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	app, err := New(context.Background(), cfg, WithLogger(zap.NewNop()), WithClock(fixedClock))
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionsReachPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	app, err := New(context.Background(), testConfig(),
		WithLogger(zap.NewNop()),
		WithPublisher(pub),
		WithClock(fixedClock),
	)
	require.NoError(t, err)

	req, err := app.Leave.Apply(context.Background(), leave.ApplyInput{
		UserID:    "emp-2",
		Type:      balance.TypeRegular,
		Nature:    balance.NatureCasual,
		StartDate: time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC),
		Reason:    "Errand",
	})
	require.NoError(t, err)
	_, err = app.Leave.Reject(context.Background(), leave.Decision{LeaveID: req.ID, ActorID: "hr-1", Final: true})
	require.NoError(t, err)

	require.NoError(t, app.Close())
	assert.Equal(t, []string{events.TypeLeaveApplied, events.TypeLeaveRejected}, pub.types())
}
