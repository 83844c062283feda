package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/platform/logger"
)

type Service struct {
	store  StoreAPI
	now    func() time.Time
	logger *zap.Logger
}

func New(store StoreAPI, now func() time.Time, l *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now, logger: logger.Named(l, "notifications")}
}

func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	if userID == "" {
		return nil
	}
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("notification create failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}
