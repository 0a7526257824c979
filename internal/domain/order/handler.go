package order

import (
	"net/http"
	"strconv"
	"strings"

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
	api.GET("/orders", h.ListOrders)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/:id", h.GetOrder)
	api.DELETE("/orders/:id", h.DeleteOrder)
	api.POST("/orders/:id/review", h.ReviewOrder)
	api.POST("/orders/:id/receive", h.ReceiveOrder)
	api.POST("/orders/:id/complete", h.CompleteOrder)
	api.POST("/orders/:id/stop", h.StopOrder)
	api.GET("/orders/:id/executions", h.ListExecutions)
	api.POST("/orders/:id/executions", h.RecordExecution)
	api.POST("/orders/:id/exceptions", h.ReportException)
	api.GET("/order-executions/today", h.TodayExecutions)
	api.GET("/order-executions/abnormal", h.AbnormalExecutions)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func fail(err error) error {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var o Order
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.Create(c.Request().Context(), &o); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Order(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Type:    Type(c.QueryParam("type")),
		Keyword: c.QueryParam("keyword"),
	}
	if v := c.QueryParam("patientId"); v != "" {
		f.PatientID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.QueryParam("status"); v != "" {
		for _, st := range strings.Split(v, ",") {
			f.Statuses = append(f.Statuses, Status(st))
		}
	}
	page, err := h.svc.Orders(c.Request().Context(), f, pg.Page, pg.PageSize)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) DeleteOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReviewOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		ReviewerID int64  `json:"reviewerId"`
		Approve    bool   `json:"approve"`
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Review(c.Request().Context(), id, body.ReviewerID, body.Approve, body.Notes); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReceiveOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Receive(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CompleteOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Complete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StopOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Stop(c.Request().Context(), id, body.Reason); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordExecution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var e Execution
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.OrderID = id
	if _, err := h.svc.RecordExecution(c.Request().Context(), &e); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ReportException(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		NurseID     int64    `json:"nurseId"`
		Description string   `json:"description"`
		Severity    Severity `json:"severity"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	execID, err := h.svc.ReportException(c.Request().Context(), id, body.NurseID, body.Description, body.Severity)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": execID})
}

func (h *Handler) ListExecutions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	execs, err := h.svc.Executions(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, execs)
}

func (h *Handler) TodayExecutions(c echo.Context) error {
	pg := pagination.FromContext(c)
	page, err := h.svc.TodayExecutions(c.Request().Context(), pg.Page, pg.PageSize)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) AbnormalExecutions(c echo.Context) error {
	pg := pagination.FromContext(c)
	page, err := h.svc.AbnormalExecutions(c.Request().Context(), pg.Page, pg.PageSize)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}
