package middleware

import (
	"context"
	"net/http"
	"strings"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/requestctx"
	"leaveflow/internal/transport/http/api"
)

// ActorHeader names the user a request acts as. Callers are trusted; there is
// no credential check behind it.
const ActorHeader = "X-Actor-ID"

type UserLookup interface {
	Get(id string) (directory.User, error)
}

// Actor resolves the actor header against the directory. Requests without the
// header pass through anonymous; an unknown id is refused.
func Actor(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actorID == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.Get(actorID)
			if err != nil {
				api.Fail(w, http.StatusUnauthorized, "unknown_actor", "actor is not a known user", GetRequestID(r.Context()))
				return
			}
			ctx := requestctx.WithActor(r.Context(), requestctx.Actor{ID: user.ID, Role: user.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetActor(ctx context.Context) (requestctx.Actor, bool) {
	return requestctx.GetActor(ctx)
}
