package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/events"
	"leaveflow/internal/platform/apperror"
)

// EditApproval rewrites the newest decision approverID took on a request.
//
// When that step held final authority the request follows the new outcome:
// Approved closes it and holds the balance, Rejected closes it and releases
// the balance, Skipped releases the balance and sends the request back into
// routing from the same approver. A non-final step only gets its label
// rewritten; a still-pending request is re-routed from that step.
func (s *Service) EditApproval(ctx context.Context, in EditInput) (LeaveRequest, error) {
	return s.transition(ctx, actionEdit, func(ctx context.Context, now time.Time) (LeaveRequest, *effects, error) {
		switch in.Status {
		case ChainApproved, ChainRejected, ChainSkipped:
		default:
			return LeaveRequest{}, nil, apperror.Wrapf(ErrInvalidEditStatus, "got %q", in.Status)
		}

		req, err := s.load(ctx, in.LeaveID, in.ExpectedVersion)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		if req.Status == StatusCancelled {
			return LeaveRequest{}, nil, apperror.Wrapf(ErrCancelledImmutable, "request %s", req.ID)
		}
		if in.ActorID == req.UserID {
			return LeaveRequest{}, nil, ErrOwnRequest
		}
		idx := req.latestDecisionBy(in.ApproverID)
		if idx < 0 {
			return LeaveRequest{}, nil, apperror.Wrapf(ErrChainEntryNotFound, "approver %s on %s", in.ApproverID, req.ID)
		}
		entry := req.ApprovalChain[idx]

		actorUser, err := s.users.Get(in.ActorID)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		if in.ActorID != entry.ApproverID && in.ActorID != entry.DelegatedFromID && !actorUser.Role.CanFinalize() {
			return LeaveRequest{}, nil, ErrNotDecisionOwner
		}
		actingFor, err := s.users.Get(entry.ActingForID())
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		requester, err := s.users.Get(req.UserID)
		if err != nil {
			return LeaveRequest{}, nil, err
		}

		next := req.clone()
		edited := &next.ApprovalChain[idx]
		edited.Remarks = strings.TrimSpace(in.Remarks)

		if entry.Status.Outcome() != in.Status {
			heldFinal := entry.Final || actingFor.Role.IsFinal()
			edited.Status = labelFor(in.Status, heldFinal)
			edited.Date = now

			switch {
			case heldFinal:
				if err := s.applyFinalEdit(&next, in.Status, requester, actingFor.ID); err != nil {
					return LeaveRequest{}, nil, err
				}
			case next.Status == StatusPending:
				if err := s.reroute(&next, requester, actingFor.ID); err != nil {
					return LeaveRequest{}, nil, err
				}
			}
			s.logger.Info("approval edited",
				zap.String("leave_id", next.ID),
				zap.String("approver_id", in.ApproverID),
				zap.String("from", string(entry.Status)),
				zap.String("to", string(edited.Status)),
				zap.Bool("final", heldFinal),
			)
		}

		if err := s.save(ctx, &next, now); err != nil {
			return LeaveRequest{}, nil, err
		}

		notices := []notice{{
			userID: next.UserID,
			ntype:  notifications.TypeLeaveEdited,
			title:  "Leave decision changed",
			body:   fmt.Sprintf("A decision on leave request %s changed to %s; the request is %s.", next.ID, edited.Status, next.Status),
		}}
		if next.CurrentApproverID != "" && next.CurrentApproverID != req.CurrentApproverID {
			notices = append(notices, awaitingNotice(next, requester.Name))
		}
		return next.clone(), &effects{
			event:   s.event(events.TypeLeaveApprovalEdited, next, self(in.ActorID), now),
			notices: notices,
		}, nil
	})
}

// applyFinalEdit moves the request to the outcome of a final step. Routing
// is resolved before the ledger is touched so that a dead end leaves
// everything as it was.
func (s *Service) applyFinalEdit(next *LeaveRequest, outcome ChainStatus, requester directory.User, actingForID string) error {
	switch outcome {
	case ChainApproved:
		if err := s.hold(next); err != nil {
			return err
		}
		next.Status = StatusApproved
		next.CurrentApproverID = ""
	case ChainRejected:
		if err := s.release(next); err != nil {
			return err
		}
		next.Status = StatusRejected
		next.CurrentApproverID = ""
	case ChainSkipped:
		if err := s.reroute(next, requester, actingForID); err != nil {
			return err
		}
		if err := s.release(next); err != nil {
			return err
		}
		next.Status = StatusPending
	}
	return nil
}

func (s *Service) reroute(next *LeaveRequest, requester directory.User, actingForID string) error {
	approverID, err := s.router.NextApprover(requester, actingForID)
	if err != nil {
		return err
	}
	next.CurrentApproverID = approverID
	return nil
}
