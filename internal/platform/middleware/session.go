package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wardkit/wardkit/internal/domain/identity"
)

const userKey = "current_user"

// SessionValidator resolves an opaque bearer token to its user. Satisfied
// by the identity service.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*identity.User, error)
}

// Session authenticates every request with a bearer token and stores the
// resolved user in the echo context.
func Session(validator SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			token := strings.TrimPrefix(auth, "Bearer ")
			if token == "" || token == auth {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			user, err := validator.ValidateSession(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// UserFromContext returns the authenticated user stored by Session, or
// nil on an unauthenticated request.
func UserFromContext(c echo.Context) *identity.User {
	u, _ := c.Get(userKey).(*identity.User)
	return u
}
