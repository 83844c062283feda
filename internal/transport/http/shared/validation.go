package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"leaveflow/internal/domain/calendar"
	"leaveflow/internal/requestctx"
	"leaveflow/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON reads the body into dst, rejecting unknown fields. It writes the
// failure response itself and reports whether the handler should continue.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		requestID := requestctx.GetRequestID(r.Context())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return false
	}
	return true
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return DecodeJSON(w, r, dst)
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{
		Field:  field,
		Reason: reason,
	})
}

// Struct runs the `validate` tags of payload.
func (v *Validator) Struct(payload any) {
	err := structValidator.Struct(payload)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.Add("", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		v.Add(fe.Field(), reasonFor(fe))
	}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "is invalid"
	}
}

// Date parses a required date. endOfDay extends a bare date to its last
// instant.
func (v *Validator) Date(field, raw string, endOfDay bool) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, false
	}
	parsed, err := calendar.ParseDate(raw, endOfDay)
	if err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		v.Add(startField, "must be on or before "+endField)
		v.Add(endField, "must be on or after "+startField)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
