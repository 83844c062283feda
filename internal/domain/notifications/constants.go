package notifications

const (
	TypeLeaveSubmitted      = "leave_submitted"
	TypeLeaveAwaitingAction = "leave_awaiting_action"
	TypeLeaveApproved       = "leave_approved"
	TypeLeaveRejected       = "leave_rejected"
	TypeLeaveCancelled      = "leave_cancelled"
	TypeLeaveEdited         = "leave_edited"
	TypeDelegationAssigned  = "delegation_assigned"
)
