package notifications

import (
	"context"

	"leaveflow/internal/platform/apperror"
)

func (s *Store) CreateNotification(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := n
	s.inbox[n.UserID] = append(s.inbox[n.UserID], &stored)
	s.byID[n.ID] = &stored
	return nil
}

// ListNotifications returns the newest notifications first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit < 0 || offset < 0 {
		return nil, nil
	}
	items := s.inbox[userID]
	out := make([]Notification, 0, limit)
	for i := len(items) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, *items[i])
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inbox[userID]), nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[notificationID]
	if !ok || n.UserID != userID {
		return apperror.Wrapf(ErrNotificationNotFound, "id %s", notificationID)
	}
	if n.ReadAt == nil {
		readAt := s.now()
		n.ReadAt = &readAt
	}
	return nil
}
