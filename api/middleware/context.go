package middleware

import "context"

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorRole contextKey = "actor_role"
)

func ActorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorID).(string); ok {
		return v
	}
	return ""
}

func ActorRoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorRole).(string); ok {
		return v
	}
	return ""
}

// WithActorID injects the caller identity into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorID, actorID)
}

func WithActorRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorRole, role)
}
