package directoryhandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Directory *directory.Directory
	Ledger    *balance.Ledger
	Audit     *audit.Service
	Logger    *zap.Logger
}

func NewHandler(dir *directory.Directory, ledger *balance.Ledger, auditSvc *audit.Service, l *zap.Logger) *Handler {
	return &Handler{Directory: dir, Ledger: ledger, Audit: auditSvc, Logger: logger.Named(l, "http.directory")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.With(middleware.RequireRole(directory.RoleHR)).Post("/", h.handleCreate)
		r.Get("/{userID}", h.handleGet)
		r.With(middleware.RequireRole(directory.RoleHR)).Put("/{userID}/approvers", h.handleUpdateApprovers)
	})
}

type createPayload struct {
	ID                  string   `json:"id" validate:"required,max=64"`
	Name                string   `json:"name" validate:"required,max=200"`
	Email               string   `json:"email" validate:"omitempty,email"`
	Role                string   `json:"role" validate:"required"`
	SequentialApprovers []string `json:"sequentialApprovers" validate:"dive,required"`
	CasualQuota         float64  `json:"casualQuota" validate:"gte=0"`
	SickQuota           float64  `json:"sickQuota" validate:"gte=0"`
}

type approversPayload struct {
	ApproverIDs []string `json:"approverIds" validate:"dive,required"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Directory.List(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, err := h.Directory.Get(chi.URLParam(r, "userID"))
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, user, requestID)
}

// handleCreate adds the user and opens their balance. Approvers are checked
// after the user exists so that a bad list leaves the user without one.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload createPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	role, ok := directory.ParseRole(payload.Role)
	if payload.Role != "" && !ok {
		v.Add("role", "must be one of: Employee TeamLead Manager HR MD Director")
	}
	if v.Reject(w, requestID) {
		return
	}

	user, err := h.Directory.Add(directory.User{
		ID:    strings.TrimSpace(payload.ID),
		Name:  strings.TrimSpace(payload.Name),
		Email: strings.TrimSpace(payload.Email),
		Role:  role,
	})
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	if _, err := h.Ledger.Open(user.ID, payload.CasualQuota, payload.SickQuota); err != nil {
		api.FromError(w, err, requestID)
		return
	}
	if len(payload.SequentialApprovers) > 0 {
		if user, err = h.Directory.UpdateUserApprovers(user.ID, payload.SequentialApprovers); err != nil {
			api.FromError(w, err, requestID)
			return
		}
	}
	h.record(r, actor.ID, "user.create", user.ID, nil, user)
	api.Created(w, user, requestID)
}

func (h *Handler) handleUpdateApprovers(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload approversPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	userID := chi.URLParam(r, "userID")
	before, err := h.Directory.Get(userID)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	after, err := h.Directory.UpdateUserApprovers(userID, payload.ApproverIDs)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "user.approvers.update", userID, before, after)
	api.Success(w, after, requestID)
}

func (h *Handler) record(r *http.Request, actorID, action, userID string, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "user", userID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		h.Logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
