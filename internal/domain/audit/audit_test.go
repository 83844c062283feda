package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndFilter(t *testing.T) {
	s := New(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) })
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "hr", "leave.approve", "leave_request", "l1", "req-1", "10.0.0.1", map[string]string{"status": "Pending"}, map[string]string{"status": "Approved"}))
	require.NoError(t, s.Record(ctx, "mgr", "leave.reject", "leave_request", "l2", "req-2", "", nil, nil))
	require.NoError(t, s.Record(ctx, "hr", "delegation.add", "delegation", "d1", "req-3", "", nil, nil))

	total, err := s.Count(ctx, Filter{ActorUser: "hr"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	events, err := s.List(ctx, Filter{EntityType: "leave_request"}, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "l2", events[0].EntityID)
	assert.Nil(t, events[1].Before)

	events, err = s.List(ctx, Filter{EntityID: "l1"}, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"status":"Approved"}`, string(events[0].After))

	events, err = s.List(ctx, Filter{}, false, 1, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "l2", events[0].EntityID)
}
