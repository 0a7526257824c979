package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wardkit/wardkit/internal/domain/rbac"
)

// PermissionVerifier checks one grant for one user. Satisfied by the rbac
// service.
type PermissionVerifier interface {
	VerifyPermission(ctx context.Context, userID int64, resource string, action rbac.Action) (bool, error)
}

// RequirePermission guards a route group with a resource/action check
// against the user placed in context by Session.
func RequirePermission(verifier PermissionVerifier, resource string, action rbac.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			ok, err := verifier.VerifyPermission(c.Request().Context(), user.ID, resource, action)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "permission denied")
			}
			return next(c)
		}
	}
}
