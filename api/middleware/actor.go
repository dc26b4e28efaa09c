package middleware

import (
	"net/http"
	"strings"

	"github.com/studia-app/studia-backend/pkg/logger"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

// Actor reads the caller identity set by the upstream gateway. Authentication
// happens before requests reach this service, so the headers are trusted.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			actorID := strings.TrimSpace(r.Header.Get(actorIDHeader))
			role := strings.TrimSpace(r.Header.Get(actorRoleHeader))

			if actorID != "" {
				ctx = WithActorID(ctx, actorID)
				if logg != nil {
					ctx = logg.WithActor(ctx, actorID)
				}
			}
			if role != "" {
				ctx = WithActorRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
