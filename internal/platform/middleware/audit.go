package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wardkit/wardkit/internal/domain/audit"
)

// AuditRecorder persists operation log entries. Satisfied by the audit
// service, whose Record is best-effort and never fails the request.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry)
}

// Audit writes one operation log entry per mutating request, attributed
// to the user placed in context by Session. Reads are not logged.
func Audit(recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodGet || req.Method == http.MethodHead {
				return next(c)
			}

			err := next(c)

			entry := audit.Entry{
				Action:   methodAction(req.Method) + " " + req.URL.Path,
				Resource: resourceFromPath(req.URL.Path),
				Status:   audit.StatusSuccess,
			}
			if user := UserFromContext(c); user != nil {
				entry.UserID = user.ID
			}
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				entry.Status = audit.StatusFailure
				if err != nil {
					entry.Details = err.Error()
				}
			}
			recorder.Record(req.Context(), entry)
			return err
		}
	}
}

func methodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// resourceFromPath takes the first path segment after the API prefix.
func resourceFromPath(path string) string {
	path = strings.TrimPrefix(path, "/api/v1/")
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "unknown"
	}
	return path
}
