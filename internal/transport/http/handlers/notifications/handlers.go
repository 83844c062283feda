package notificationshandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	Logger  *zap.Logger
}

func NewHandler(service *notifications.Service, l *zap.Logger) *Handler {
	return &Handler{Service: service, Logger: logger.Named(l, "http.notifications")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 100, shared.MaxPageLimit)
	total, err := h.Service.Count(r.Context(), actor.ID)
	if err != nil {
		h.Logger.Warn("notification count failed", zap.Error(err))
	}

	items, err := h.Service.List(r.Context(), actor.ID, page.Limit, page.Offset)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, requestID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), actor.ID, notificationID); err != nil {
		api.FromError(w, err, requestID)
		return
	}

	api.Success(w, map[string]string{"status": "read"}, requestID)
}
