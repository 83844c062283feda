package leave

import (
	"time"

	"leaveflow/internal/domain/balance"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// ChainStatus labels one step of the approval chain. Steps taken with final
// authority read Approved/Rejected, the others Recommended/NotRecommended.
type ChainStatus string

const (
	ChainApproved       ChainStatus = "Approved"
	ChainRejected       ChainStatus = "Rejected"
	ChainSkipped        ChainStatus = "Skipped"
	ChainRecommended    ChainStatus = "Recommended"
	ChainNotRecommended ChainStatus = "NotRecommended"
)

// Outcome folds a label onto Approved, Rejected or Skipped.
func (c ChainStatus) Outcome() ChainStatus {
	switch c {
	case ChainRecommended:
		return ChainApproved
	case ChainNotRecommended:
		return ChainRejected
	default:
		return c
	}
}

func labelFor(outcome ChainStatus, final bool) ChainStatus {
	switch {
	case outcome == ChainApproved && !final:
		return ChainRecommended
	case outcome == ChainRejected && !final:
		return ChainNotRecommended
	default:
		return outcome
	}
}

// TimeRange is a short leave's clock window, "HH:MM" each.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ApprovalEntry struct {
	ApproverID      string      `json:"approverId"`
	Status          ChainStatus `json:"status"`
	Date            time.Time   `json:"date"`
	Remarks         string      `json:"remarks,omitempty"`
	DelegatedFromID string      `json:"delegatedFromId,omitempty"`
	Final           bool        `json:"final"`
}

// ActingForID is whose authority the step was taken with.
func (e ApprovalEntry) ActingForID() string {
	if e.DelegatedFromID != "" {
		return e.DelegatedFromID
	}
	return e.ApproverID
}

type LeaveRequest struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Type              balance.LeaveType `json:"type"`
	Nature            balance.Nature    `json:"nature"`
	StartDate         time.Time         `json:"startDate"`
	EndDate           time.Time         `json:"endDate"`
	TimeRange         *TimeRange        `json:"timeRange,omitempty"`
	Reason            string            `json:"reason"`
	Status            Status            `json:"status"`
	CurrentApproverID string            `json:"currentApproverId,omitempty"`
	ApprovalChain     []ApprovalEntry   `json:"approvalChain"`
	// DaysCalculated is days for regular leave and hours for short leave.
	DaysCalculated  float64   `json:"daysCalculated"`
	UnpaidLeaveDays float64   `json:"unpaidLeaveDays"`
	Attachments     []string  `json:"attachments,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// charge is what the ledger currently holds for this request; nil once
	// released.
	charge *balance.Charge
}

// BalanceHeld reports whether the request currently consumes balance.
func (r LeaveRequest) BalanceHeld() bool {
	return r.charge != nil
}

func (r LeaveRequest) clone() LeaveRequest {
	out := r
	out.ApprovalChain = append([]ApprovalEntry{}, r.ApprovalChain...)
	out.Attachments = append([]string(nil), r.Attachments...)
	if r.TimeRange != nil {
		tr := *r.TimeRange
		out.TimeRange = &tr
	}
	if r.charge != nil {
		c := *r.charge
		out.charge = &c
	}
	return out
}

// latestDecisionBy returns the index of the newest chain entry taken by
// approverID, directly or through a delegate, or -1.
func (r LeaveRequest) latestDecisionBy(approverID string) int {
	for i := len(r.ApprovalChain) - 1; i >= 0; i-- {
		e := r.ApprovalChain[i]
		if e.ApproverID == approverID || e.DelegatedFromID == approverID {
			return i
		}
	}
	return -1
}

type ApplyInput struct {
	UserID      string
	Type        balance.LeaveType
	Nature      balance.Nature
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
	TimeRange   *TimeRange
	Attachments []string
	// Duration overrides the computed days (or hours) when set.
	Duration *float64
}

type Decision struct {
	LeaveID string
	ActorID string
	Remarks string
	// Final asks for a closing decision. Only roles that can finalize may set it.
	Final           bool
	ExpectedVersion int64
}

type EditInput struct {
	LeaveID         string
	ApproverID      string
	Status          ChainStatus
	Remarks         string
	ActorID         string
	ExpectedVersion int64
}

type ListFilter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}

type RequestListResult struct {
	Requests []LeaveRequest `json:"requests"`
	Total    int            `json:"total"`
}
