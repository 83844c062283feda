package leavehandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Ledger  *balance.Ledger
	Audit   *audit.Service
	Idem    *middleware.IdempotencyStore
	Logger  *zap.Logger
}

func NewHandler(service *leave.Service, ledger *balance.Ledger, auditSvc *audit.Service, idem *middleware.IdempotencyStore, l *zap.Logger) *Handler {
	return &Handler{Service: service, Ledger: ledger, Audit: auditSvc, Idem: idem, Logger: logger.Named(l, "http.leave")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.With(middleware.Idempotency(h.Idem)).Post("/requests", h.handleApply)
		r.Get("/requests", h.handleListRequests)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.Post("/requests/{requestID}/approve", h.decision("leave.approve", h.Service.Approve))
		r.Post("/requests/{requestID}/reject", h.decision("leave.reject", h.Service.Reject))
		r.Post("/requests/{requestID}/skip", h.decision("leave.skip", h.Service.Skip))
		r.Post("/requests/{requestID}/cancel", h.handleCancel)
		r.Put("/requests/{requestID}/approvals/{approverID}", h.handleEditApproval)
		r.Put("/requests/{requestID}/unpaid-days", h.handleUpdateUnpaid)
		r.Get("/approvals/pending", h.handlePending)
		r.Get("/approvals/history", h.handleHistory)
		r.With(middleware.RequireRole(directory.RoleHR, directory.RoleMD, directory.RoleDirector)).Get("/balances", h.handleListBalances)
		r.Get("/balances/{userID}", h.handleGetBalance)
	})
}

type timeRangePayload struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

type applyPayload struct {
	UserID      string            `json:"userId"`
	Type        string            `json:"type" validate:"required,oneof=Regular Short"`
	Nature      string            `json:"nature" validate:"omitempty,oneof=Casual Sick Unpaid Other Maternity Pilgrim"`
	StartDate   string            `json:"startDate" validate:"required"`
	EndDate     string            `json:"endDate" validate:"required"`
	Reason      string            `json:"reason" validate:"required,max=2000"`
	TimeRange   *timeRangePayload `json:"timeRange"`
	Attachments []string          `json:"attachments" validate:"max=10,dive,required,max=512"`
	Duration    *float64          `json:"duration" validate:"omitempty,gt=0"`
}

type decisionPayload struct {
	Remarks         string `json:"remarks" validate:"max=2000"`
	Final           bool   `json:"final"`
	ExpectedVersion int64  `json:"expectedVersion" validate:"gte=0"`
}

type editPayload struct {
	Status          string `json:"status" validate:"required,oneof=Approved Rejected Skipped"`
	Remarks         string `json:"remarks" validate:"max=2000"`
	ExpectedVersion int64  `json:"expectedVersion" validate:"gte=0"`
}

type unpaidPayload struct {
	Days *float64 `json:"days" validate:"required,gte=0"`
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload applyPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	start, _ := v.Date("startDate", payload.StartDate, false)
	end, _ := v.Date("endDate", payload.EndDate, false)
	v.DateOrder("startDate", start, "endDate", end)
	if payload.Type == string(balance.TypeShort) && payload.TimeRange == nil && payload.Duration == nil {
		v.Add("timeRange", "is required for short leave")
	}
	if v.Reject(w, requestID) {
		return
	}

	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.Role.CanFinalize() {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot apply on behalf of another user", requestID)
		return
	}

	in := leave.ApplyInput{
		UserID:      userID,
		Type:        balance.LeaveType(payload.Type),
		Nature:      balance.Nature(payload.Nature),
		StartDate:   start,
		EndDate:     end,
		Reason:      strings.TrimSpace(payload.Reason),
		Attachments: payload.Attachments,
		Duration:    payload.Duration,
	}
	if payload.TimeRange != nil {
		in.TimeRange = &leave.TimeRange{Start: payload.TimeRange.Start, End: payload.TimeRange.End}
	}

	created, err := h.Service.Apply(r.Context(), in)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "leave.apply", created.ID, nil, created)
	api.Created(w, created, requestID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, shared.DefaultPageLimit, shared.MaxPageLimit)

	filter := leave.ListFilter{
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
		Status: leave.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	switch filter.Status {
	case "", leave.StatusPending, leave.StatusApproved, leave.StatusRejected, leave.StatusCancelled:
	default:
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "status", Reason: "must be one of: Pending Approved Rejected Cancelled"}})
		return
	}
	if !actor.Role.CanFinalize() {
		if filter.UserID != "" && filter.UserID != actor.ID {
			api.Fail(w, http.StatusForbidden, "forbidden", "can only list your own requests", requestID)
			return
		}
		filter.UserID = actor.ID
	}

	result, err := h.Service.List(r.Context(), filter)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	req, err := h.Service.GetFor(r.Context(), chi.URLParam(r, "requestID"), actor.ID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, req, requestID)
}

type decideFunc func(context.Context, leave.Decision) (leave.LeaveRequest, error)

func (h *Handler) decision(action string, decide decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())
		requestID := middleware.GetRequestID(r.Context())

		var payload decisionPayload
		if !shared.DecodeOptionalJSON(w, r, &payload) {
			return
		}
		v := shared.NewValidator()
		v.Struct(payload)
		if v.Reject(w, requestID) {
			return
		}

		leaveID := chi.URLParam(r, "requestID")
		before, err := h.Service.Get(r.Context(), leaveID)
		if err != nil {
			api.FromError(w, err, requestID)
			return
		}
		after, err := decide(r.Context(), leave.Decision{
			LeaveID:         leaveID,
			ActorID:         actor.ID,
			Remarks:         strings.TrimSpace(payload.Remarks),
			Final:           payload.Final,
			ExpectedVersion: payload.ExpectedVersion,
		})
		if err != nil {
			api.FromError(w, err, requestID)
			return
		}
		h.record(r, actor.ID, action, leaveID, before, after)
		api.Success(w, after, requestID)
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	leaveID := chi.URLParam(r, "requestID")

	before, err := h.Service.Get(r.Context(), leaveID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	after, err := h.Service.Cancel(r.Context(), leaveID, actor.ID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "leave.cancel", leaveID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleEditApproval(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload editPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	leaveID := chi.URLParam(r, "requestID")
	before, err := h.Service.Get(r.Context(), leaveID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	after, err := h.Service.EditApproval(r.Context(), leave.EditInput{
		LeaveID:         leaveID,
		ApproverID:      chi.URLParam(r, "approverID"),
		Status:          leave.ChainStatus(payload.Status),
		Remarks:         strings.TrimSpace(payload.Remarks),
		ActorID:         actor.ID,
		ExpectedVersion: payload.ExpectedVersion,
	})
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "leave.approval.edit", leaveID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handleUpdateUnpaid(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload unpaidPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	leaveID := chi.URLParam(r, "requestID")
	before, err := h.Service.Get(r.Context(), leaveID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	after, err := h.Service.UpdateUnpaidLeaveDays(r.Context(), leaveID, actor.ID, *payload.Days)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "leave.unpaid.update", leaveID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	out, err := h.Service.PendingApprovals(r.Context(), actor.ID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	out, err := h.Service.ApprovalHistory(r.Context(), actor.ID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, out, requestID)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Ledger.List(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")
	if userID != actor.ID && !actor.Role.CanFinalize() {
		api.Fail(w, http.StatusForbidden, "forbidden", "can only view your own balance", requestID)
		return
	}
	b, err := h.Ledger.Get(userID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, b, requestID)
}

func (h *Handler) record(r *http.Request, actorID, action, leaveID string, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "leave_request", leaveID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		h.Logger.Warn("audit record failed", zap.String("action", action), zap.String("leave_id", leaveID), zap.Error(err))
	}
}
