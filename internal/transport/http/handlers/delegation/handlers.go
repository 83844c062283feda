package delegationhandler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/delegation"
	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Registry *delegation.Registry
	Notify   *notifications.Service
	Audit    *audit.Service
	Logger   *zap.Logger
}

func NewHandler(registry *delegation.Registry, notify *notifications.Service, auditSvc *audit.Service, l *zap.Logger) *Handler {
	return &Handler{Registry: registry, Notify: notify, Audit: auditSvc, Logger: logger.Named(l, "http.delegation")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}/delegations", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Use(h.requireOwnerOrFinalizer)
		r.Get("/", h.handleList)
		r.Post("/", h.handleAdd)
		r.Put("/{historyID}", h.handleUpdate)
		r.Delete("/{historyID}", h.handleCancel)
		r.Post("/{historyID}/stop", h.handleStop)
		r.Post("/{historyID}/extend", h.handleExtend)
	})
}

// requireOwnerOrFinalizer lets users manage their own delegations and lets
// HR and executives manage anyone's.
func (h *Handler) requireOwnerOrFinalizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())
		if chi.URLParam(r, "userID") != actor.ID && !actor.Role.CanFinalize() {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot manage another user's delegations", middleware.GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type windowPayload struct {
	DelegateID string `json:"delegateId" validate:"required"`
	StartDate  string `json:"startDate" validate:"required"`
	EndDate    string `json:"endDate" validate:"required"`
}

type extendPayload struct {
	EndDate string `json:"endDate" validate:"required"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Registry.History(chi.URLParam(r, "userID")), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")

	var payload windowPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	start, end, ok := parseWindow(w, requestID, payload)
	if !ok {
		return
	}

	entry, err := h.Registry.Add(userID, strings.TrimSpace(payload.DelegateID), start, end)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "delegation.add", entry.ID, nil, entry)
	if err := h.Notify.Create(r.Context(), entry.DelegatedToID, notifications.TypeDelegationAssigned,
		"Approval authority delegated to you",
		fmt.Sprintf("You act for %s from %s to %s.", userID, entry.StartDate.Format("2006-01-02"), entry.EndDate.Format("2006-01-02")),
	); err != nil {
		h.Logger.Warn("delegation notification failed", zap.String("delegation_id", entry.ID), zap.Error(err))
	}
	api.Created(w, entry, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload windowPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	start, end, ok := parseWindow(w, requestID, payload)
	if !ok {
		return
	}

	historyID := chi.URLParam(r, "historyID")
	entry, err := h.Registry.Update(chi.URLParam(r, "userID"), historyID, strings.TrimSpace(payload.DelegateID), start, end)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "delegation.update", historyID, nil, entry)
	api.Success(w, entry, requestID)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	historyID := chi.URLParam(r, "historyID")

	if err := h.Registry.Cancel(chi.URLParam(r, "userID"), historyID); err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "delegation.cancel", historyID, nil, nil)
	api.Success(w, map[string]string{"status": "cancelled"}, requestID)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	historyID := chi.URLParam(r, "historyID")

	entry, err := h.Registry.Stop(chi.URLParam(r, "userID"), historyID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "delegation.stop", historyID, nil, entry)
	api.Success(w, entry, requestID)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload extendPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	end, _ := v.Date("endDate", payload.EndDate, true)
	if v.Reject(w, requestID) {
		return
	}

	historyID := chi.URLParam(r, "historyID")
	entry, err := h.Registry.Extend(chi.URLParam(r, "userID"), historyID, end)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "delegation.extend", historyID, nil, entry)
	api.Success(w, entry, requestID)
}

// parseWindow reads the delegation window. A bare end date covers that whole
// day.
func parseWindow(w http.ResponseWriter, requestID string, payload windowPayload) (start, end time.Time, ok bool) {
	v := shared.NewValidator()
	v.Struct(payload)
	start, _ = v.Date("startDate", payload.StartDate, false)
	end, _ = v.Date("endDate", payload.EndDate, true)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestID) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handler) record(r *http.Request, actorID, action, entryID string, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "delegation", entryID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		h.Logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
