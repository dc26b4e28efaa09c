package controllers

import (
	"net/http"

	"github.com/studia-app/studia-backend/api/responses"
	"github.com/studia-app/studia-backend/pkg/config"
	"github.com/studia-app/studia-backend/pkg/db"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/logger"
	pkgredis "github.com/studia-app/studia-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Studia-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, dbPinger db.Pinger, redisPinger pkgredis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Studia-Env", cfg.App.Env)

		if dbPinger != nil {
			if err := dbPinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if redisPinger != nil {
			if err := redisPinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
