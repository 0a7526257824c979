package medication

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wardkit/wardkit/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/medication-records", h.CreateRecord)
	api.GET("/medication-records/:id", h.GetRecord)
	api.PATCH("/medication-records/:id/status", h.UpdateRecordStatus)
	api.POST("/medication-records/:id/reminders", h.CreateReminders)
	api.GET("/patients/:id/medication-records", h.ListRecords)
	api.GET("/patients/:id/medication-reminders", h.ListReminders)
	api.GET("/patients/:id/medication-reminders/today", h.TodayReminders)
	api.GET("/medication-reminders/today", h.TodayAllReminders)
	api.PATCH("/medication-reminders/:id/status", h.UpdateReminderStatus)
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

func (h *Handler) CreateRecord(c echo.Context) error {
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.CreateRecord(c.Request().Context(), &r); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Record(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRecords(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.Records(c.Request().Context(), patientID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) UpdateRecordStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status RecordStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateRecordStatus(c.Request().Context(), id, body.Status); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateReminders(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		NotifyBeforeMinutes int `json:"notifyBeforeMinutes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	count, err := h.svc.CreateReminders(c.Request().Context(), id, time.Duration(body.NotifyBeforeMinutes)*time.Minute)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]int{"created": count})
}

func (h *Handler) ListReminders(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	rems, err := h.svc.Reminders(c.Request().Context(), patientID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, rems)
}

func (h *Handler) TodayReminders(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	rems, err := h.svc.TodayReminders(c.Request().Context(), patientID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, rems)
}

func (h *Handler) TodayAllReminders(c echo.Context) error {
	rems, err := h.svc.TodayReminders(c.Request().Context(), 0)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, rems)
}

func (h *Handler) UpdateReminderStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status ReminderStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateReminderStatus(c.Request().Context(), id, body.Status); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
