package notifications

import (
	"errors"

	"github.com/dmitrymomot/wealthcrm/pkg/handler"
	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
)

// callerID returns the authenticated user id set by the bearer middleware.
func callerID(ctx handler.Context) (string, bool) {
	claims, ok := jwt.GetClaims(ctx)
	if !ok || claims.UserID() == "" {
		return "", false
	}
	return claims.UserID(), true
}

// requirePermission rejects callers whose role lacks perm.
func requirePermission[R any](authz Authorizer, perm string) handler.Decorator[R] {
	return func(next handler.HandlerFunc[R]) handler.HandlerFunc[R] {
		return func(ctx handler.Context, req R) handler.Response {
			claims, ok := jwt.GetClaims(ctx)
			if !ok {
				return handler.Error(handler.ErrUnauthorized)
			}
			if err := authz.Can(claims.Role, perm); err != nil {
				return handler.Error(errors.Join(handler.ErrForbidden, err))
			}
			return next(ctx, req)
		}
	}
}
