package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studia-app/studia-backend/internal/billing"
	"github.com/studia-app/studia-backend/internal/reconcile"
	"github.com/studia-app/studia-backend/pkg/config"
	"github.com/studia-app/studia-backend/pkg/db"
	"github.com/studia-app/studia-backend/pkg/logger"
	"github.com/studia-app/studia-backend/pkg/metrics"
	"github.com/studia-app/studia-backend/pkg/migrate"
)

const jobName = "ledger_reconcile"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "reconcile"

	logg = logger.New(logger.Options{
		ServiceName: "reconcile",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	metricsServer := metrics.NewServer(":"+cfg.Service.MetricsPort, prometheus.DefaultGatherer)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped", err)
		}
	}()

	service, err := reconcile.NewService(
		billing.NewRepository(dbClient.DB()),
		dbClient,
		logg,
		cfg.Billing.ReconcileBatchSize,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting ledger reconciliation")

	start := time.Now()
	summary, err := service.ReconcileAll(ctx)
	jobMetrics.ObserveDuration(jobName, time.Since(start))

	if summary != nil {
		jobMetrics.AddRepaired(jobName, "session_totals", summary.SessionTotalsRepaired)
		jobMetrics.AddRepaired(jobName, "amount_totals", summary.AmountTotalsRepaired)
		jobMetrics.AddRepaired(jobName, "statuses", summary.StatusesRepaired)
	}

	shutdownMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "metrics server shutdown", err)
		}
	}

	if err != nil {
		jobMetrics.IncFailure(jobName)
		logg.Error(ctx, "ledger reconciliation finished with errors", err)
		shutdownMetrics()
		os.Exit(1)
	}

	jobMetrics.IncSuccess(jobName)
	logg.Info(ctx, "ledger reconciliation finished cleanly")
	shutdownMetrics()
}
