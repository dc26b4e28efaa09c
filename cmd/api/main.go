package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/studia-app/studia-backend/api/routes"
	"github.com/studia-app/studia-backend/internal/appointments"
	"github.com/studia-app/studia-backend/internal/billing"
	"github.com/studia-app/studia-backend/internal/reconcile"
	"github.com/studia-app/studia-backend/internal/registry"
	"github.com/studia-app/studia-backend/pkg/config"
	"github.com/studia-app/studia-backend/pkg/db"
	"github.com/studia-app/studia-backend/pkg/logger"
	"github.com/studia-app/studia-backend/pkg/migrate"
	"github.com/studia-app/studia-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registryRepo := registry.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())
	appointmentRepo := appointments.NewRepository(dbClient.DB())

	billingService, err := billing.NewService(billingRepo, dbClient, registryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	appointmentService, err := appointments.NewService(appointmentRepo, dbClient, registryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create appointment service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(billingRepo, dbClient, logg, cfg.Billing.ReconcileBatchSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, billingService, appointmentService, reconcileService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
