package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/delegation"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/domain/notifications"
)

func regularLeave(userID string) map[string]any {
	return map[string]any{
		"userId":    userID,
		"type":      "Regular",
		"nature":    "Casual",
		"startDate": "2026-01-12",
		"endDate":   "2026-01-14",
		"reason":    "Family visit",
	}
}

func (e *testEnv) apply(actor string, payload map[string]any) leave.LeaveRequest {
	e.t.Helper()
	status, env := e.do(http.MethodPost, "/api/v1/leave/requests", actor, payload)
	require.Equal(e.t, http.StatusCreated, status, "apply: %+v", env.Error)
	return decodeData[leave.LeaveRequest](e.t, env)
}

func (e *testEnv) decide(action, leaveID, actor string, body map[string]any) (int, envelope) {
	e.t.Helper()
	return e.do(http.MethodPost, "/api/v1/leave/requests/"+leaveID+"/"+action, actor, body)
}

func (e *testEnv) balance(userID string) balance.Balance {
	e.t.Helper()
	status, env := e.do(http.MethodGet, "/api/v1/leave/balances/"+userID, "hr-1", nil)
	require.Equal(e.t, http.StatusOK, status)
	return decodeData[balance.Balance](e.t, env)
}

func TestLeaveApprovalJourney(t *testing.T) {
	env := newTestEnv(t)

	created := env.apply("emp-1", regularLeave(""))
	assert.Equal(t, leave.StatusPending, created.Status)
	assert.Equal(t, "lead-1", created.CurrentApproverID)
	assert.Equal(t, float64(3), created.DaysCalculated)
	assert.Equal(t, float64(3), env.balance("emp-1").CasualUsed)

	status, res := env.do(http.MethodGet, "/api/v1/leave/approvals/pending", "lead-1", nil)
	require.Equal(t, http.StatusOK, status)
	pending := decodeData[[]leave.LeaveRequest](t, res)
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	status, res = env.decide("approve", created.ID, "emp-1", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", res.Error.Code)

	status, res = env.decide("approve", created.ID, "lead-1", map[string]any{"remarks": "fine by me"})
	require.Equal(t, http.StatusOK, status)
	afterLead := decodeData[leave.LeaveRequest](t, res)
	assert.Equal(t, "mgr-1", afterLead.CurrentApproverID)
	require.Len(t, afterLead.ApprovalChain, 1)
	assert.Equal(t, leave.ChainRecommended, afterLead.ApprovalChain[0].Status)

	status, res = env.decide("approve", created.ID, "mgr-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hr-1", decodeData[leave.LeaveRequest](t, res).CurrentApproverID)

	status, res = env.decide("approve", created.ID, "hr-1", map[string]any{"final": true})
	require.Equal(t, http.StatusOK, status)
	approved := decodeData[leave.LeaveRequest](t, res)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Empty(t, approved.CurrentApproverID)
	require.Len(t, approved.ApprovalChain, 3)
	assert.Equal(t, leave.ChainApproved, approved.ApprovalChain[2].Status)
	assert.Equal(t, float64(3), env.balance("emp-1").CasualUsed)

	status, res = env.do(http.MethodGet, "/api/v1/leave/approvals/history", "mgr-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]leave.LeaveRequest](t, res), 1)

	require.Eventually(t, func() bool {
		_, res := env.do(http.MethodGet, "/api/v1/notifications", "emp-1", nil)
		for _, n := range decodeData[[]notifications.Notification](t, res) {
			if n.Type == notifications.TypeLeaveApproved {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	status, res = env.do(http.MethodGet, "/api/v1/audit?entityId="+created.ID, "hr-1", nil)
	require.Equal(t, http.StatusOK, status)
	trail := decodeData[[]audit.Event](t, res)
	require.Len(t, trail, 4)
	assert.Equal(t, "leave.approve", trail[0].Action)
	assert.Equal(t, "leave.apply", trail[3].Action)
}

func TestFinalRejectRestoresBalance(t *testing.T) {
	env := newTestEnv(t)

	created := env.apply("emp-2", regularLeave(""))
	assert.Equal(t, "hr-1", created.CurrentApproverID)
	assert.Equal(t, float64(3), env.balance("emp-2").CasualUsed)

	status, res := env.decide("reject", created.ID, "hr-1", map[string]any{"final": true, "remarks": "team offsite"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, leave.StatusRejected, decodeData[leave.LeaveRequest](t, res).Status)
	assert.Equal(t, float64(0), env.balance("emp-2").CasualUsed)

	status, res = env.decide("approve", created.ID, "hr-1", nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "precondition_failed", res.Error.Code)
}

func TestExecutiveRoutingThroughHR(t *testing.T) {
	env := newTestEnv(t)

	created := env.apply("emp-2", regularLeave(""))
	status, res := env.decide("approve", created.ID, "hr-1", nil)
	require.Equal(t, http.StatusOK, status)
	forwarded := decodeData[leave.LeaveRequest](t, res)
	assert.Equal(t, "md-1", forwarded.CurrentApproverID)
	assert.Equal(t, leave.ChainRecommended, forwarded.ApprovalChain[0].Status)

	status, res = env.decide("approve", created.ID, "md-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, leave.StatusApproved, decodeData[leave.LeaveRequest](t, res).Status)
}

func TestVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	created := env.apply("emp-1", regularLeave(""))

	status, res := env.decide("approve", created.ID, "lead-1", map[string]any{"expectedVersion": created.Version + 5})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", res.Error.Code)

	status, _ = env.decide("approve", created.ID, "lead-1", map[string]any{"expectedVersion": created.Version})
	assert.Equal(t, http.StatusOK, status)
}

func TestApplyValidation(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.do(http.MethodPost, "/api/v1/leave/requests", "emp-1", map[string]any{
		"type":      "Holiday",
		"startDate": "2026-01-14",
		"endDate":   "2026-01-12",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", res.Error.Code)

	status, _ = env.do(http.MethodPost, "/api/v1/leave/requests", "", regularLeave(""))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, res = env.do(http.MethodPost, "/api/v1/leave/requests", "ghost", regularLeave(""))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unknown_actor", res.Error.Code)

	status, _ = env.do(http.MethodPost, "/api/v1/leave/requests", "emp-2", regularLeave("emp-1"))
	assert.Equal(t, http.StatusForbidden, status)

	short := map[string]any{
		"type":      "Short",
		"startDate": "2026-01-12",
		"endDate":   "2026-01-12",
		"reason":    "Dentist",
		"timeRange": map[string]string{"start": "10:00", "end": "12:30"},
	}
	created := env.apply("emp-1", short)
	assert.Equal(t, 2.5, created.DaysCalculated)
	assert.Equal(t, 2.5, env.balance("emp-1").UsedHours)

	zero := regularLeave("")
	zero["duration"] = 0
	status, res = env.do(http.MethodPost, "/api/v1/leave/requests", "emp-1", zero)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", res.Error.Code)
}

func TestGetRequestVisibility(t *testing.T) {
	env := newTestEnv(t)
	created := env.apply("emp-1", regularLeave(""))
	require.Equal(t, "lead-1", created.CurrentApproverID)

	for _, actor := range []string{"emp-1", "lead-1", "hr-1", "md-1"} {
		status, res := env.do(http.MethodGet, "/api/v1/leave/requests/"+created.ID, actor, nil)
		assert.Equal(t, http.StatusOK, status, "%s: %+v", actor, res.Error)
	}
	for _, actor := range []string{"emp-2", "mgr-1"} {
		status, res := env.do(http.MethodGet, "/api/v1/leave/requests/"+created.ID, actor, nil)
		assert.Equal(t, http.StatusForbidden, status, actor)
		assert.Equal(t, "forbidden", res.Error.Code)
	}

	status, _ := env.decide("approve", created.ID, "lead-1", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(http.MethodGet, "/api/v1/leave/requests/"+created.ID, "mgr-1", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(http.MethodGet, "/api/v1/leave/requests/"+created.ID, "lead-1", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestApplyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	status, first := env.do(http.MethodPost, "/api/v1/leave/requests", "emp-2", regularLeave(""), "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, status)
	status, second := env.do(http.MethodPost, "/api/v1/leave/requests", "emp-2", regularLeave(""), "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, decodeData[leave.LeaveRequest](t, first).ID, decodeData[leave.LeaveRequest](t, second).ID)
	assert.Equal(t, float64(3), env.balance("emp-2").CasualUsed)
}

func TestDelegateActsForManager(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.do(http.MethodPost, "/api/v1/users/mgr-1/delegations", "mgr-1", map[string]any{
		"delegateId": "emp-2",
		"startDate":  "2026-01-01",
		"endDate":    "2026-01-05",
	})
	require.Equal(t, http.StatusCreated, status, "%+v", res.Error)
	entry := decodeData[delegation.Entry](t, res)

	created := env.apply("emp-1", regularLeave(""))
	status, _ = env.decide("approve", created.ID, "lead-1", nil)
	require.Equal(t, http.StatusOK, status)

	status, res = env.do(http.MethodGet, "/api/v1/leave/approvals/pending", "emp-2", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decodeData[[]leave.LeaveRequest](t, res), 1)

	status, res = env.decide("approve", created.ID, "emp-2", nil)
	require.Equal(t, http.StatusOK, status)
	after := decodeData[leave.LeaveRequest](t, res)
	require.Len(t, after.ApprovalChain, 2)
	assert.Equal(t, "emp-2", after.ApprovalChain[1].ApproverID)
	assert.Equal(t, "mgr-1", after.ApprovalChain[1].DelegatedFromID)
	assert.Equal(t, "hr-1", after.CurrentApproverID)

	status, _ = env.do(http.MethodGet, "/api/v1/users/mgr-1/delegations", "emp-1", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, res = env.do(http.MethodGet, "/api/v1/users/mgr-1/delegations", "mgr-1", nil)
	require.Equal(t, http.StatusOK, status)
	history := decodeData[[]delegation.View](t, res)
	require.Len(t, history, 1)
	assert.Equal(t, delegation.PhaseActive, history[0].Phase)

	status, res = env.do(http.MethodDelete, "/api/v1/users/mgr-1/delegations/"+entry.ID, "mgr-1", nil)
	assert.Equal(t, http.StatusPreconditionFailed, status, "%+v", res.Error)

	status, _ = env.do(http.MethodPost, "/api/v1/users/mgr-1/delegations/"+entry.ID+"/stop", "mgr-1", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestEditFinalApprovalToRejected(t *testing.T) {
	env := newTestEnv(t)

	created := env.apply("emp-2", regularLeave(""))
	status, _ := env.decide("approve", created.ID, "hr-1", map[string]any{"final": true})
	require.Equal(t, http.StatusOK, status)

	status, res := env.do(http.MethodPut, "/api/v1/leave/requests/"+created.ID+"/approvals/hr-1", "hr-1", map[string]any{
		"status":  "Rejected",
		"remarks": "overlaps audit week",
	})
	require.Equal(t, http.StatusOK, status, "%+v", res.Error)
	edited := decodeData[leave.LeaveRequest](t, res)
	assert.Equal(t, leave.StatusRejected, edited.Status)
	assert.Equal(t, float64(0), env.balance("emp-2").CasualUsed)

	status, res = env.do(http.MethodPut, "/api/v1/leave/requests/"+created.ID+"/approvals/hr-1", "hr-1", map[string]any{"status": "Maybe"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", res.Error.Code)
}

func TestCancelAndUnpaidDays(t *testing.T) {
	env := newTestEnv(t)
	created := env.apply("emp-1", regularLeave(""))

	status, _ := env.do(http.MethodPut, "/api/v1/leave/requests/"+created.ID+"/unpaid-days", "emp-1", map[string]any{"days": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, res := env.do(http.MethodPut, "/api/v1/leave/requests/"+created.ID+"/unpaid-days", "hr-1", map[string]any{"days": 7})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), decodeData[leave.LeaveRequest](t, res).UnpaidLeaveDays)

	status, _ = env.decide("cancel", created.ID, "emp-2", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, res = env.decide("cancel", created.ID, "emp-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, leave.StatusCancelled, decodeData[leave.LeaveRequest](t, res).Status)
	assert.Equal(t, float64(0), env.balance("emp-1").CasualUsed)

	status, res = env.do(http.MethodGet, "/api/v1/leave/requests?status=Cancelled", "emp-1", nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeData[leave.RequestListResult](t, res)
	assert.Equal(t, 1, list.Total)

	status, _ = env.do(http.MethodGet, "/api/v1/leave/requests?userId=emp-2", "emp-1", nil)
	assert.Equal(t, http.StatusForbidden, status)
}
