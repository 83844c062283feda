package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}
