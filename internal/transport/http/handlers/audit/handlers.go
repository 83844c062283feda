package audithandler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	Logger  *zap.Logger
}

func NewHandler(service *audit.Service, l *zap.Logger) *Handler {
	return &Handler{Service: service, Logger: logger.Named(l, "http.audit")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireRole(directory.RoleHR))
		r.Get("/", h.handleListEvents)
		r.Get("/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 100, shared.MaxPageLimit)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"
	filter := filterFrom(r)

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		h.Logger.Warn("audit count failed", zap.Error(err))
	}

	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, requestID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	events, err := h.Service.List(r.Context(), filterFrom(r), false, 0, 0)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		h.Logger.Warn("audit export header failed", zap.Error(err))
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			h.Logger.Warn("audit export row failed", zap.Error(err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Logger.Warn("audit export flush failed", zap.Error(err))
	}
}
