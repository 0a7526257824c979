package patient

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
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.POST("/patients/:id/discharge", h.Discharge)
	api.POST("/patients/:id/transfer", h.Transfer)

	api.GET("/patients/:id/medical-records", h.ListMedicalRecords)
	api.POST("/patients/:id/medical-records", h.AddMedicalRecord)
	api.PUT("/medical-records/:id", h.UpdateMedicalRecord)

	api.GET("/patients/:id/vitals", h.ListVitals)
	api.POST("/patients/:id/vitals", h.RecordVitals)

	api.GET("/patients/:id/nursing-records", h.ListNursingRecords)
	api.POST("/patients/:id/nursing-records", h.AddNursingRecord)
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

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Patient(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Status:  Status(c.QueryParam("status")),
		Gender:  Gender(c.QueryParam("gender")),
		Keyword: c.QueryParam("keyword"),
	}
	if v := c.QueryParam("roomId"); v != "" {
		f.RoomID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.QueryParam("minAge"); v != "" {
		f.MinAge, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("maxAge"); v != "" {
		f.MaxAge, _ = strconv.Atoi(v)
	}
	page, err := h.svc.Patients(c.Request().Context(), f, pg.Page, pg.PageSize)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var u Update
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Update(c.Request().Context(), id, u); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Discharge(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Transfer(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddMedicalRecord(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	var m MedicalRecord
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.PatientID = patientID
	if _, err := h.svc.AddMedicalRecord(c.Request().Context(), &m); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMedicalRecords(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.MedicalRecords(c.Request().Context(), patientID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) UpdateMedicalRecord(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateMedicalRecord(c.Request().Context(), id, body.Content); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordVitals(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	var v VitalSigns
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.PatientID = patientID
	if _, err := h.svc.RecordVitals(c.Request().Context(), &v); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListVitals(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	var from, to time.Time
	if v := c.QueryParam("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if v := c.QueryParam("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}
	vitals, err := h.svc.Vitals(c.Request().Context(), patientID, from, to)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, vitals)
}

func (h *Handler) AddNursingRecord(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	var n NursingRecord
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.PatientID = patientID
	if _, err := h.svc.AddNursingRecord(c.Request().Context(), &n); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListNursingRecords(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.NursingRecords(c.Request().Context(), patientID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, recs)
}
