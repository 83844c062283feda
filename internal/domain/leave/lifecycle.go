package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leaveflow/internal/domain/approval"
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/calendar"
	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/events"
	"leaveflow/internal/platform/apperror"
)

const (
	actionApply        = "apply"
	actionApprove      = "approve"
	actionReject       = "reject"
	actionSkip         = "skip"
	actionCancel       = "cancel"
	actionEdit         = "edit_approval"
	actionUpdateUnpaid = "update_unpaid"
)

// Apply creates a pending request, routes it to its first approver and
// charges the requester's balance.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (LeaveRequest, error) {
	return s.transition(ctx, actionApply, func(ctx context.Context, now time.Time) (LeaveRequest, *effects, error) {
		if err := validateApply(&in); err != nil {
			return LeaveRequest{}, nil, err
		}
		requester, err := s.users.Get(in.UserID)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		days, err := requestDuration(in, s.calendar)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		approverID, err := s.router.InitialApprover(requester)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		charge, err := s.ledger.Deduct(requester.ID, in.Type, in.Nature, days)
		if err != nil {
			return LeaveRequest{}, nil, err
		}

		req := LeaveRequest{
			ID:                uuid.NewString(),
			UserID:            requester.ID,
			Type:              in.Type,
			Nature:            charge.Nature,
			StartDate:         in.StartDate,
			EndDate:           in.EndDate,
			TimeRange:         in.TimeRange,
			Reason:            strings.TrimSpace(in.Reason),
			Status:            StatusPending,
			CurrentApproverID: approverID,
			ApprovalChain:     []ApprovalEntry{},
			DaysCalculated:    days,
			Attachments:       append([]string(nil), in.Attachments...),
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
			charge:            &charge,
		}
		switch {
		case in.Type == balance.TypeShort:
			req.UnpaidLeaveDays = charge.UnpaidHours
		case charge.Nature == balance.NatureUnpaid:
			req.UnpaidLeaveDays = days
		}

		if err := s.store.Create(ctx, req); err != nil {
			if restoreErr := s.ledger.Restore(requester.ID, charge); restoreErr != nil {
				err = fmt.Errorf("%w (restore failed: %v)", err, restoreErr)
			}
			return LeaveRequest{}, nil, err
		}

		return req.clone(), &effects{
			event: s.event(events.TypeLeaveApplied, req, self(requester.ID), now),
			notices: []notice{{
				userID: approverID,
				ntype:  notifications.TypeLeaveSubmitted,
				title:  "Leave request awaiting your action",
				body:   fmt.Sprintf("%s applied for %s leave (%g).", requester.Name, req.Nature, days),
			}},
		}, nil
	})
}

func (s *Service) Approve(ctx context.Context, d Decision) (LeaveRequest, error) {
	return s.decide(ctx, actionApprove, d)
}

func (s *Service) Reject(ctx context.Context, d Decision) (LeaveRequest, error) {
	return s.decide(ctx, actionReject, d)
}

// Skip passes the request on without deciding it. It never closes the chain.
func (s *Service) Skip(ctx context.Context, d Decision) (LeaveRequest, error) {
	return s.decide(ctx, actionSkip, d)
}

func (s *Service) decide(ctx context.Context, action string, d Decision) (LeaveRequest, error) {
	return s.transition(ctx, action, func(ctx context.Context, now time.Time) (LeaveRequest, *effects, error) {
		req, err := s.load(ctx, d.LeaveID, d.ExpectedVersion)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		if req.Status != StatusPending {
			return LeaveRequest{}, nil, apperror.Wrapf(ErrNotPending, "request %s is %s", req.ID, req.Status)
		}
		if d.ActorID == req.UserID {
			return LeaveRequest{}, nil, ErrOwnRequest
		}
		actorUser, err := s.users.Get(d.ActorID)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		requester, err := s.users.Get(req.UserID)
		if err != nil {
			return LeaveRequest{}, nil, err
		}

		actor := s.router.ResolveActingIdentity(d.ActorID, req.CurrentApproverID, now)
		actingFor := actorUser
		switch {
		case actor.ActingAsID != req.CurrentApproverID:
			if !actorUser.Role.CanFinalize() {
				return LeaveRequest{}, nil, apperror.Wrapf(ErrNotCurrentApprover, "waiting on %s", req.CurrentApproverID)
			}
		case actor.Delegated():
			if actingFor, err = s.users.Get(actor.ActingAsID); err != nil {
				return LeaveRequest{}, nil, err
			}
		}

		final := actingFor.Role.IsFinal()
		if action != actionSkip {
			if final, err = approval.IsFinalAuthority(actingFor.Role, d.Final); err != nil {
				return LeaveRequest{}, nil, err
			}
		}

		entry := ApprovalEntry{
			ApproverID: d.ActorID,
			Date:       now,
			Remarks:    strings.TrimSpace(d.Remarks),
			Final:      final,
		}
		if actor.Delegated() {
			entry.DelegatedFromID = actor.ActingAsID
		}

		next := req.clone()
		var eventType string
		var notices []notice
		switch {
		case action == actionApprove && final:
			if err := s.hold(&next); err != nil {
				return LeaveRequest{}, nil, err
			}
			entry.Status = ChainApproved
			next.Status = StatusApproved
			next.CurrentApproverID = ""
			eventType = events.TypeLeaveApproved
			notices = append(notices, outcomeNotice(next))
		case action == actionReject && final:
			if err := s.release(&next); err != nil {
				return LeaveRequest{}, nil, err
			}
			entry.Status = ChainRejected
			next.Status = StatusRejected
			next.CurrentApproverID = ""
			eventType = events.TypeLeaveRejected
			notices = append(notices, outcomeNotice(next))
		default:
			nextApprover, err := s.router.NextApprover(requester, actingFor.ID)
			if err != nil {
				return LeaveRequest{}, nil, err
			}
			entry.Status, eventType = forwardedLabel(action)
			next.CurrentApproverID = nextApprover
			notices = append(notices, awaitingNotice(next, requester.Name))
		}

		next.ApprovalChain = append(next.ApprovalChain, entry)
		if err := s.save(ctx, &next, now); err != nil {
			return LeaveRequest{}, nil, err
		}
		return next.clone(), &effects{
			event:   s.event(eventType, next, actor, now),
			notices: notices,
		}, nil
	})
}

func forwardedLabel(action string) (ChainStatus, string) {
	switch action {
	case actionApprove:
		return ChainRecommended, events.TypeLeaveRecommended
	case actionReject:
		return ChainNotRecommended, events.TypeLeaveNotRecommended
	default:
		return ChainSkipped, events.TypeLeaveSkipped
	}
}

// Cancel withdraws a pending or approved request and gives back its balance.
// The approval chain is left as it was.
func (s *Service) Cancel(ctx context.Context, leaveID, actorID string) (LeaveRequest, error) {
	return s.transition(ctx, actionCancel, func(ctx context.Context, now time.Time) (LeaveRequest, *effects, error) {
		req, err := s.load(ctx, leaveID, 0)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			return LeaveRequest{}, nil, apperror.Wrapf(ErrNotCancellable, "request %s is %s", req.ID, req.Status)
		}
		if actorID != req.UserID {
			actorUser, err := s.users.Get(actorID)
			if err != nil {
				return LeaveRequest{}, nil, err
			}
			if !actorUser.Role.CanFinalize() {
				return LeaveRequest{}, nil, ErrCancelNotAllowed
			}
		}

		next := req.clone()
		if err := s.release(&next); err != nil {
			return LeaveRequest{}, nil, err
		}
		waitingOn := next.CurrentApproverID
		next.Status = StatusCancelled
		next.CurrentApproverID = ""
		if err := s.save(ctx, &next, now); err != nil {
			return LeaveRequest{}, nil, err
		}

		var notices []notice
		for _, userID := range []string{waitingOn, next.UserID} {
			if userID == "" || userID == actorID {
				continue
			}
			notices = append(notices, notice{
				userID: userID,
				ntype:  notifications.TypeLeaveCancelled,
				title:  "Leave request cancelled",
				body:   fmt.Sprintf("Leave request %s was cancelled.", next.ID),
			})
		}
		return next.clone(), &effects{
			event:   s.event(events.TypeLeaveCancelled, next, self(actorID), now),
			notices: notices,
		}, nil
	})
}

// UpdateUnpaidLeaveDays sets the unpaid portion, clamped to [0, daysCalculated].
func (s *Service) UpdateUnpaidLeaveDays(ctx context.Context, leaveID, actorID string, days float64) (LeaveRequest, error) {
	return s.transition(ctx, actionUpdateUnpaid, func(ctx context.Context, now time.Time) (LeaveRequest, *effects, error) {
		actorUser, err := s.users.Get(actorID)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		if !actorUser.Role.CanFinalize() {
			return LeaveRequest{}, nil, ErrFinalAuthorityRequired
		}
		req, err := s.load(ctx, leaveID, 0)
		if err != nil {
			return LeaveRequest{}, nil, err
		}
		if req.Status == StatusCancelled {
			return LeaveRequest{}, nil, apperror.Wrapf(ErrCancelledImmutable, "request %s", req.ID)
		}
		if actorID == req.UserID {
			return LeaveRequest{}, nil, ErrOwnRequest
		}

		next := req.clone()
		next.UnpaidLeaveDays = clamp(days, 0, next.DaysCalculated)
		if err := s.save(ctx, &next, now); err != nil {
			return LeaveRequest{}, nil, err
		}
		return next.clone(), &effects{
			event: s.event(events.TypeLeaveUnpaidUpdated, next, self(actorID), now),
		}, nil
	})
}

func outcomeNotice(req LeaveRequest) notice {
	ntype := notifications.TypeLeaveApproved
	if req.Status == StatusRejected {
		ntype = notifications.TypeLeaveRejected
	}
	return notice{
		userID: req.UserID,
		ntype:  ntype,
		title:  fmt.Sprintf("Leave request %s", strings.ToLower(string(req.Status))),
		body:   fmt.Sprintf("Your leave request %s is now %s.", req.ID, req.Status),
	}
}

func awaitingNotice(req LeaveRequest, requesterName string) notice {
	return notice{
		userID: req.CurrentApproverID,
		ntype:  notifications.TypeLeaveAwaitingAction,
		title:  "Leave request awaiting your action",
		body:   fmt.Sprintf("Leave request %s from %s needs your decision.", req.ID, requesterName),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validateApply(in *ApplyInput) error {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return apperror.Wrapf(ErrInvalidRequest, "user is required")
	}
	if !in.Type.Valid() {
		return apperror.Wrapf(ErrInvalidRequest, "unknown leave type %q", in.Type)
	}
	if in.Nature != "" && !in.Nature.Valid() {
		return apperror.Wrapf(ErrInvalidRequest, "unknown leave nature %q", in.Nature)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return apperror.Wrapf(ErrInvalidRequest, "start and end dates are required")
	}
	in.StartDate, in.EndDate = calendar.DateOnly(in.StartDate), calendar.DateOnly(in.EndDate)
	if in.EndDate.Before(in.StartDate) {
		return apperror.Wrapf(ErrInvalidRequest, "end date before start date")
	}
	if in.Type == balance.TypeShort && in.TimeRange == nil && in.Duration == nil {
		return apperror.Wrapf(ErrInvalidRequest, "short leave needs a time range")
	}
	return nil
}
