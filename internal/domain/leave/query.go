package leave

import (
	"context"
	"slices"

	"leaveflow/internal/platform/apperror"
)

func (s *Service) Get(ctx context.Context, leaveID string) (LeaveRequest, error) {
	return s.store.Get(ctx, leaveID)
}

// GetFor returns the request when actorID may see it: the requester, a role
// that can finalize, the current approver or its active delegate, and anyone
// who already decided on it.
func (s *Service) GetFor(ctx context.Context, leaveID, actorID string) (LeaveRequest, error) {
	req, err := s.store.Get(ctx, leaveID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.UserID == actorID || req.CurrentApproverID == actorID || req.latestDecisionBy(actorID) >= 0 {
		return req, nil
	}
	actor, err := s.users.Get(actorID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if actor.Role.CanFinalize() {
		return req, nil
	}
	if req.CurrentApproverID != "" && s.delegations != nil {
		if slices.Contains(s.delegations.DelegatorsOf(actorID, s.now()), req.CurrentApproverID) {
			return req, nil
		}
	}
	return LeaveRequest{}, apperror.Wrapf(ErrRequestHidden, "request %s", leaveID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]LeaveRequest, error) {
	return s.store.ListByUser(ctx, userID)
}

// List filters requests in creation order and pages the result. A zero
// limit returns everything after offset.
func (s *Service) List(ctx context.Context, filter ListFilter) (RequestListResult, error) {
	var (
		all []LeaveRequest
		err error
	)
	if filter.UserID != "" {
		all, err = s.store.ListByUser(ctx, filter.UserID)
	} else {
		all, err = s.store.List(ctx)
	}
	if err != nil {
		return RequestListResult{}, err
	}

	matched := all[:0]
	for _, req := range all {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		matched = append(matched, req)
	}

	result := RequestListResult{Total: len(matched)}
	start := min(max(filter.Offset, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, end)
	}
	result.Requests = matched[start:end]
	return result, nil
}

// PendingApprovals lists pending requests waiting on actorID, either
// directly or on someone who has delegated to actorID right now.
func (s *Service) PendingApprovals(ctx context.Context, actorID string) ([]LeaveRequest, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	waitingOn := map[string]struct{}{actorID: {}}
	if s.delegations != nil {
		for _, delegator := range s.delegations.DelegatorsOf(actorID, s.now()) {
			waitingOn[delegator] = struct{}{}
		}
	}

	out := []LeaveRequest{}
	for _, req := range all {
		if req.Status != StatusPending || req.UserID == actorID {
			continue
		}
		if _, ok := waitingOn[req.CurrentApproverID]; ok {
			out = append(out, req)
		}
	}
	return out, nil
}

// ApprovalHistory lists requests actorID has decided on, in person or
// through a delegate.
func (s *Service) ApprovalHistory(ctx context.Context, actorID string) ([]LeaveRequest, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []LeaveRequest{}
	for _, req := range all {
		if req.latestDecisionBy(actorID) >= 0 {
			out = append(out, req)
		}
	}
	return out, nil
}
