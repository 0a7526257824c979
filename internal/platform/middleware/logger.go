package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one structured line per request once the handler chain has
// returned, carrying the id set by RequestID and, on authenticated routes,
// the session user's id.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			rid, _ := c.Get(requestIDKey).(string)
			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt = evt.
				Str(requestIDKey, rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if u := UserFromContext(c); u != nil {
				evt = evt.Int64("user", u.ID)
			}
			evt.Msg("request")
			return err
		}
	}
}
