package notifications

import (
	"log/slog"

	"github.com/dmitrymomot/wealthcrm/pkg/handler"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/ratelimiter"
)

// rateLimit spends one token of the caller's budget for scope. A failing
// limiter store lets the call through.
func rateLimit[R any](l ratelimiter.Limiter, scope string, log *slog.Logger) handler.Decorator[R] {
	return func(next handler.HandlerFunc[R]) handler.HandlerFunc[R] {
		return func(ctx handler.Context, req R) handler.Response {
			id, ok := callerID(ctx)
			if !ok {
				return handler.Error(handler.ErrUnauthorized)
			}

			res, err := l.Allow(ctx, scope+":"+id)
			if err != nil {
				log.LogAttrs(ctx, slog.LevelWarn, "rate limiter unavailable, allowing request",
					logger.UserID(id),
					logger.Error(err),
				)
				return next(ctx, req)
			}

			ratelimiter.WriteHeaders(ctx.ResponseWriter().Header(), res)
			if !res.Allowed() {
				return handler.Error(handler.ErrTooManyRequests)
			}
			return next(ctx, req)
		}
	}
}
