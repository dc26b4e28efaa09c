package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studia-app/studia-backend/api/controllers"
	"github.com/studia-app/studia-backend/api/middleware"
	"github.com/studia-app/studia-backend/internal/appointments"
	"github.com/studia-app/studia-backend/internal/billing"
	"github.com/studia-app/studia-backend/internal/reconcile"
	"github.com/studia-app/studia-backend/pkg/config"
	"github.com/studia-app/studia-backend/pkg/db"
	"github.com/studia-app/studia-backend/pkg/logger"
	pkgredis "github.com/studia-app/studia-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	billingService billing.Service,
	appointmentService appointments.Service,
	reconcileService reconcile.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Actor(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg, cfg.Idempotency.TTL))

		r.Route("/students/{studentID}", func(r chi.Router) {
			r.Post("/attendance", controllers.RecordAttendance(billingService, cfg, logg))
			r.Post("/payments", controllers.AdjustPayment(billingService, logg))
			r.Get("/ledger", controllers.GetLedger(billingService, logg))
		})

		r.Get("/ledgers", controllers.ListLedgers(billingService, logg))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", controllers.RequestAppointment(appointmentService, logg))
			r.Get("/", controllers.ListAppointments(appointmentService, logg))
			r.Route("/{appointmentID}", func(r chi.Router) {
				r.Get("/", controllers.GetAppointment(appointmentService, logg))
				r.Post("/decision", controllers.DecideAppointment(appointmentService, logg))
				r.Post("/cancel", controllers.CancelAppointment(appointmentService, logg))
				r.Delete("/", controllers.DeleteAppointment(appointmentService, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", controllers.RunReconcile(reconcileService, logg))
			r.Get("/appointment-deletions", controllers.ListDeletionLogs(appointmentService, logg))
		})
	})

	return r
}
