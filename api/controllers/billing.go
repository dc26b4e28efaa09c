package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/studia-app/studia-backend/api/responses"
	"github.com/studia-app/studia-backend/api/validators"
	"github.com/studia-app/studia-backend/internal/billing"
	"github.com/studia-app/studia-backend/pkg/config"
	"github.com/studia-app/studia-backend/pkg/enums"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/logger"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

type recordAttendanceRequest struct {
	Outcome          string  `json:"outcome" validate:"required,oneof=paid_session unpaid_session"`
	AmountPerSession *string `json:"amount_per_session,omitempty"`
}

type adjustPaymentRequest struct {
	PaidDelta      *string `json:"paid_delta,omitempty"`
	RemainingDelta *string `json:"remaining_delta,omitempty"`
}

// RecordAttendance appends one attended session to the student's ledger.
// When the request omits the per-session amount, the configured default
// price applies.
func RecordAttendance(svc billing.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		studentID, err := validators.ParseUUID(chi.URLParam(r, "studentID"), "studentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordAttendanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := enums.ParseAttendanceOutcome(payload.Outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}

		raw := cfg.Billing.DefaultSessionPrice
		if payload.AmountPerSession != nil {
			raw = strings.TrimSpace(*payload.AmountPerSession)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount_per_session"))
			return
		}

		ledger, err := svc.RecordAttendance(r.Context(), billing.RecordAttendanceInput{
			StudentID:        studentID,
			Outcome:          outcome,
			AmountPerSession: amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ledger)
	}
}

// AdjustPayment applies paid and remaining deltas outside of attendance,
// for catch-up payments or corrections.
func AdjustPayment(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		studentID, err := validators.ParseUUID(chi.URLParam(r, "studentID"), "studentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paidDelta, err := parseOptionalDecimal(payload.PaidDelta, "paid_delta")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		remainingDelta, err := parseOptionalDecimal(payload.RemainingDelta, "remaining_delta")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := svc.AdjustPayment(r.Context(), billing.AdjustPaymentInput{
			StudentID:      studentID,
			PaidDelta:      paidDelta,
			RemainingDelta: remainingDelta,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ledger)
	}
}

// GetLedger returns a single student's ledger row.
func GetLedger(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		studentID, err := validators.ParseUUID(chi.URLParam(r, "studentID"), "studentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := svc.GetLedger(r.Context(), studentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ledger)
	}
}

// ListLedgers returns a cursor-paginated page of ledgers, optionally
// filtered by payment status.
func ListLedgers(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.LedgerStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, parseErr := enums.ParseLedgerStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			status = &parsed
		}

		page, err := svc.ListLedgers(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func parseOptionalDecimal(raw *string, field string) (decimal.Decimal, error) {
	if raw == nil {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return value, nil
}
