package requestctx

import (
	"context"

	"leaveflow/internal/domain/directory"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorKey     ctxKey = "actor"
)

// Actor is the user a request acts as, taken from the trusted actor header.
type Actor struct {
	ID   string
	Role directory.Role
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok && actor.ID != ""
}
