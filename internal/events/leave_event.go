package events

import (
	"context"
	"time"
)

const LeaveWorkflowTopic = "hr.leave.workflow.v1"

const (
	TypeLeaveApplied        = "leave.applied"
	TypeLeaveRecommended    = "leave.recommended"
	TypeLeaveApproved       = "leave.approved"
	TypeLeaveNotRecommended = "leave.not_recommended"
	TypeLeaveRejected       = "leave.rejected"
	TypeLeaveSkipped        = "leave.skipped"
	TypeLeaveCancelled      = "leave.cancelled"
	TypeLeaveApprovalEdited = "leave.approval_edited"
	TypeLeaveUnpaidUpdated  = "leave.unpaid_updated"
)

type LeaveEvent struct {
	EventType         string    `json:"event_type"`
	LeaveID           string    `json:"leave_id"`
	UserID            string    `json:"user_id"`
	ActorID           string    `json:"actor_id"`
	ActingAsID        string    `json:"acting_as_id,omitempty"`
	Status            string    `json:"status"`
	CurrentApproverID string    `json:"current_approver_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishLeaveEvent(ctx context.Context, event LeaveEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishLeaveEvent(context.Context, LeaveEvent) error {
	return nil
}
