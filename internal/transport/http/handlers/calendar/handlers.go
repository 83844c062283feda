package calendarhandler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/calendar"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Calendar *calendar.Calendar
	Audit    *audit.Service
	Logger   *zap.Logger
}

func NewHandler(cal *calendar.Calendar, auditSvc *audit.Service, l *zap.Logger) *Handler {
	return &Handler{Calendar: cal, Audit: auditSvc, Logger: logger.Named(l, "http.calendar")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		hrOnly := middleware.RequireRole(directory.RoleHR)
		r.Get("/holidays", h.handleListHolidays)
		r.With(hrOnly).Post("/holidays", h.handleCreateHoliday)
		r.With(hrOnly).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
		r.Get("/weekend", h.handleWeekend)
		r.With(hrOnly).Post("/weekend/{weekday}/toggle", h.handleToggleWeekend)
		r.Get("/working-days", h.handleWorkingDays)
	})
}

type holidayPayload struct {
	Date string `json:"date" validate:"required"`
	Name string `json:"name" validate:"required,max=200"`
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Calendar.Holidays(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload holidayPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	day, _ := v.Date("date", payload.Date, false)
	if v.Reject(w, requestID) {
		return
	}

	holiday, err := h.Calendar.AddHoliday(day, payload.Name)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "calendar.holiday.create", holiday.ID, nil, holiday)
	api.Created(w, holiday, requestID)
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	holidayID := chi.URLParam(r, "holidayID")

	if err := h.Calendar.DeleteHoliday(holidayID); err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "calendar.holiday.delete", holidayID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, requestID)
}

func (h *Handler) handleWeekend(w http.ResponseWriter, r *http.Request) {
	api.Success(w, map[string][]int{"weekendDays": h.Calendar.WeekendDays()}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleToggleWeekend(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	weekday, err := strconv.Atoi(chi.URLParam(r, "weekday"))
	if err != nil {
		api.FromError(w, calendar.ErrInvalidWeekday, requestID)
		return
	}
	before := h.Calendar.WeekendDays()
	days, err := h.Calendar.ToggleWeekendDay(weekday)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	h.record(r, actor.ID, "calendar.weekend.toggle", strconv.Itoa(weekday), before, days)
	api.Success(w, map[string][]int{"weekendDays": days}, requestID)
}

// handleWorkingDays previews how many days a regular leave over [start, end]
// would consume.
func (h *Handler) handleWorkingDays(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()
	v := shared.NewValidator()
	for _, field := range []string{"start", "end"} {
		if strings.TrimSpace(query.Get(field)) == "" {
			v.Add(field, "is required")
		}
	}
	start, _ := v.Date("start", query.Get("start"), false)
	end, _ := v.Date("end", query.Get("end"), false)
	v.DateOrder("start", start, "end", end)
	if v.Reject(w, requestID) {
		return
	}

	days, err := h.Calendar.WorkingDays(start, end)
	if err != nil {
		api.FromError(w, err, requestID)
		return
	}
	api.Success(w, map[string]float64{"workingDays": days}, requestID)
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "calendar", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		h.Logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
