package leave

import (
	"context"

	"leaveflow/internal/platform/apperror"
)

func (s *Store) Create(ctx context.Context, req LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[req.ID]; exists {
		return apperror.Wrapf(apperror.ErrConflict, "leave request %s exists", req.ID)
	}
	stored := req.clone()
	s.byID[req.ID] = &stored
	s.order = append(s.order, req.ID)
	s.byUser[req.UserID] = append(s.byUser[req.UserID], req.ID)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.byID[id]
	if !ok {
		return LeaveRequest{}, apperror.Wrapf(ErrLeaveNotFound, "id %s", id)
	}
	return req.clone(), nil
}

// Update replaces a stored request. The caller has already bumped Version.
func (s *Store) Update(ctx context.Context, req LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[req.ID]
	if !ok {
		return apperror.Wrapf(ErrLeaveNotFound, "id %s", req.ID)
	}
	if req.Version != current.Version+1 {
		return apperror.Wrapf(ErrVersionConflict, "stored %d, writing %d", current.Version, req.Version)
	}
	stored := req.clone()
	s.byID[req.ID] = &stored
	return nil
}

func (s *Store) List(ctx context.Context) ([]LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order), nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID]), nil
}

func (s *Store) collect(ids []string) []LeaveRequest {
	out := make([]LeaveRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id].clone())
	}
	return out
}
