package controllers

import (
	"net/http"

	"github.com/studia-app/studia-backend/api/responses"
	"github.com/studia-app/studia-backend/api/validators"
	"github.com/studia-app/studia-backend/internal/appointments"
	"github.com/studia-app/studia-backend/internal/reconcile"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/logger"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

// RunReconcile walks every ledger and repairs derived columns that drifted
// from the authoritative counters. Per-row failures do not abort the walk;
// a partial run reports the summary alongside a warning.
func RunReconcile(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		summary, err := svc.ReconcileAll(r.Context())
		if err != nil {
			if summary == nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				ctx := logg.WithFields(r.Context(), map[string]any{
					"rows_scanned":  summary.RowsScanned,
					"rows_repaired": summary.RowsRepaired,
				})
				logg.Warn(ctx, "reconcile.partial")
			}
			responses.WriteSuccessStatus(w, http.StatusMultiStatus, summary)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// ListDeletionLogs returns the audit trail of deleted appointments.
func ListDeletionLogs(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
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

		page, err := svc.ListDeletionLogs(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
