package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studia-app/studia-backend/api/middleware"
	"github.com/studia-app/studia-backend/api/responses"
	"github.com/studia-app/studia-backend/api/validators"
	"github.com/studia-app/studia-backend/internal/appointments"
	"github.com/studia-app/studia-backend/pkg/enums"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/logger"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

type requestAppointmentRequest struct {
	ParentID    string `json:"parent_id" validate:"required,uuid4"`
	ChildID     string `json:"child_id" validate:"required,uuid4"`
	RequestedAt string `json:"requested_at" validate:"required"`
	Reason      string `json:"reason" validate:"required,min=1,max=2000"`
}

type decideAppointmentRequest struct {
	Decision    string  `json:"decision" validate:"required,oneof=approve refuse"`
	AdminReason *string `json:"admin_reason,omitempty" validate:"omitempty,max=2000"`
}

type cancelAppointmentRequest struct {
	ParentID string `json:"parent_id" validate:"required,uuid4"`
}

type deleteAppointmentRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=2000"`
}

// RequestAppointment files a parent's rendez-vous request for review.
func RequestAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointment service unavailable"))
			return
		}

		var payload requestAppointmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parentID, err := validators.ParseUUID(payload.ParentID, "parent_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		childID, err := validators.ParseUUID(payload.ChildID, "child_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestedAt, err := time.Parse(time.RFC3339, payload.RequestedAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "requested_at must be RFC 3339"))
			return
		}

		appt, err := svc.Request(r.Context(), appointments.RequestInput{
			ParentID:     parentID,
			ChildID:      childID,
			RequestedAt:  requestedAt,
			ParentReason: payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, appt)
	}
}

// GetAppointment returns a single appointment by id.
func GetAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointment service unavailable"))
			return
		}

		id, err := validators.ParseUUID(chi.URLParam(r, "appointmentID"), "appointmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, appt)
	}
}

// ListAppointments returns a cursor-paginated page of appointments,
// optionally filtered by status and parent.
func ListAppointments(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointment service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := appointments.ListFilters{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, parseErr := enums.ParseAppointmentStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			filters.Status = &parsed
		}

		parentID, err := validators.ParseQueryUUID(r, "parent_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if parentID != uuid.Nil {
			filters.ParentID = &parentID
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// DecideAppointment records an administrator's approval or refusal of a
// pending request.
func DecideAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointment service unavailable"))
			return
		}

		id, err := validators.ParseUUID(chi.URLParam(r, "appointmentID"), "appointmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload decideAppointmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := enums.ParseAppointmentDecision(payload.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		appt, err := svc.Decide(r.Context(), appointments.DecideInput{
			AppointmentID: id,
			Decision:      decision,
			AdminReason:   payload.AdminReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, appt)
	}
}

// CancelAppointment lets the requesting parent withdraw their own pending
// request.
func CancelAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointment service unavailable"))
			return
		}

		id, err := validators.ParseUUID(chi.URLParam(r, "appointmentID"), "appointmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelAppointmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parentID, err := validators.ParseUUID(payload.ParentID, "parent_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		appt, err := svc.Cancel(r.Context(), appointments.CancelInput{
			AppointmentID: id,
			ByParentID:    parentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, appt)
	}
}

// DeleteAppointment removes an appointment after writing an audit entry.
// The acting administrator comes from the gateway identity headers.
func DeleteAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointment service unavailable"))
			return
		}

		id, err := validators.ParseUUID(chi.URLParam(r, "appointmentID"), "appointmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())
		if actorID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
			return
		}

		var payload deleteAppointmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), appointments.DeleteInput{
			AppointmentID: id,
			Reason:        payload.Reason,
			DeletedBy:     actorID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
