package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

type contextKey string

const ctxActor contextKey = "actor"

const (
	actorHeader  = "X-Actor"
	defaultActor = "system"
)

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultActor
	}
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return defaultActor
}

// WithActor injects the acting operator into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// Actor reads the operator identity from the X-Actor header. Batches record
// who created, closed, or deleted them, so every mutating route runs behind
// this middleware.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(actorHeader))
			if actor == "" {
				actor = defaultActor
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
