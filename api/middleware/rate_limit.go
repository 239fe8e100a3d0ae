package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/stockledgerhq/stockledger-backend/api/responses"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

type closeLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// CloseRateLimitPolicy bounds how often a single actor may run the closing
// protocol. Closing moves stock, so it gets a throttle the read surfaces
// do not.
type CloseRateLimitPolicy struct {
	window time.Duration
	limit  int64
}

// NewCloseRateLimitPolicy builds a policy with the supplied window and limit.
func NewCloseRateLimitPolicy(window time.Duration, limit int64) CloseRateLimitPolicy {
	return CloseRateLimitPolicy{window: window, limit: limit}
}

// DefaultCloseRateLimitPolicy allows thirty closes per actor per minute.
var DefaultCloseRateLimitPolicy = NewCloseRateLimitPolicy(time.Minute, 30)

func (p CloseRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

// CloseRateLimit enforces a per-actor fixed-window counter on the close
// endpoint. A nil store disables the limit.
func CloseRateLimit(policy CloseRateLimitPolicy, store closeLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := ActorFromContext(ctx)

			allowed, count, err := store.FixedWindowAllow(ctx, "close:"+actor, policy.limit, policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"actor":          actor,
						"attempts":       count,
						"limit":          policy.limit,
						"window_seconds": int(policy.window.Seconds()),
					})
					logg.Warn(logCtx, "close.rate_limit.blocked")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
