package leave

import "context"

type StoreAPI interface {
	Create(ctx context.Context, req LeaveRequest) error
	Get(ctx context.Context, id string) (LeaveRequest, error)
	Update(ctx context.Context, req LeaveRequest) error
	// List returns every request in creation order.
	List(ctx context.Context) ([]LeaveRequest, error)
	ListByUser(ctx context.Context, userID string) ([]LeaveRequest, error)
}
