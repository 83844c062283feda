package middleware

import (
	"net/http"
	"slices"
	"strings"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/transport/http/api"
)

func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor header required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireRole(roles ...directory.Role) func(http.Handler) http.Handler {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	message := "requires role " + strings.Join(names, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor header required", GetRequestID(r.Context()))
				return
			}
			if !slices.Contains(roles, actor.Role) {
				api.Fail(w, http.StatusForbidden, "forbidden", message, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
