package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/operation-logs", h.List)
}

func (h *Handler) List(c echo.Context) error {
	var f Filter
	if v := c.QueryParam("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid userId")
		}
		f.UserID = id
	}
	f.Action = c.QueryParam("action")
	if v := c.QueryParam("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from")
		}
		f.From = ts
	}
	if v := c.QueryParam("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to")
		}
		f.To = ts
	}

	page, err := h.svc.Entries(c.Request().Context(), f, pagination.FromContext(c))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, page)
}
