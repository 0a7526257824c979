package ward

import (
	"net/http"
	"strconv"

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
	api.GET("/wards", h.ListWards)
	api.POST("/wards", h.CreateWard)
	api.GET("/wards/:id", h.GetWard)
	api.PUT("/wards/:id", h.UpdateWard)
	api.DELETE("/wards/:id", h.DeleteWard)
	api.GET("/wards/:id/rooms", h.ListRooms)
	api.GET("/wards/:id/staff", h.ListStaff)
	api.POST("/wards/:id/staff", h.AddStaff)

	api.POST("/rooms", h.CreateRoom)
	api.GET("/rooms/:id", h.GetRoom)
	api.PUT("/rooms/:id", h.UpdateRoom)
	api.DELETE("/rooms/:id", h.DeleteRoom)
	api.GET("/rooms/:id/beds", h.ListBeds)
	api.POST("/rooms/:id/cleanings", h.RecordCleaning)
	api.GET("/rooms/:id/cleanings", h.CleaningHistory)
	api.GET("/rooms/:id/equipment", h.ListEquipment)
	api.POST("/rooms/:id/equipment", h.AddEquipment)

	api.POST("/beds", h.CreateBed)
	api.GET("/beds/:id", h.GetBed)
	api.PUT("/beds/:id", h.UpdateBed)
	api.DELETE("/beds/:id", h.DeleteBed)
	api.PATCH("/beds/:id/status", h.UpdateBedStatus)
	api.POST("/beds/:id/assign", h.AssignBed)
	api.POST("/beds/:id/release", h.ReleaseBed)
	api.GET("/beds/:id/assignments", h.ListAssignments)
	api.GET("/beds/:id/releases", h.ListReleases)
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

// -- Wards --

func (h *Handler) CreateWard(c echo.Context) error {
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.CreateWard(c.Request().Context(), &w); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	w, err := h.svc.Ward(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := WardFilter{
		Status:     WardStatus(c.QueryParam("status")),
		Department: c.QueryParam("department"),
		Building:   c.QueryParam("building"),
		Keyword:    c.QueryParam("keyword"),
	}
	if floor := c.QueryParam("floor"); floor != "" {
		f.Floor, _ = strconv.Atoi(floor)
	}
	page, err := h.svc.Wards(c.Request().Context(), f, pg.Page, pg.PageSize)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) UpdateWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var u WardUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateWard(c.Request().Context(), id, u); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteWard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteWard(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Rooms --

func (h *Handler) CreateRoom(c echo.Context) error {
	var r Room
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.CreateRoom(c.Request().Context(), &r); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRoom(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Room(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRooms(c echo.Context) error {
	wardID, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := RoomFilter{
		Type:    RoomType(c.QueryParam("type")),
		Status:  RoomStatus(c.QueryParam("status")),
		Gender:  GenderRequirement(c.QueryParam("gender")),
		Keyword: c.QueryParam("keyword"),
	}
	if v := c.QueryParam("hasOxygen"); v != "" {
		b := v == "true"
		f.HasOxygen = &b
	}
	if v := c.QueryParam("hasToilet"); v != "" {
		b := v == "true"
		f.HasToilet = &b
	}
	page, err := h.svc.Rooms(c.Request().Context(), wardID, f, pg.Page, pg.PageSize)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) UpdateRoom(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var u RoomUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateRoom(c.Request().Context(), id, u); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteRoom(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRoom(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordCleaning(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		StaffID int64        `json:"staffId"`
		Type    CleaningType `json:"type"`
		Remarks string       `json:"remarks"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.svc.RecordCleaning(c.Request().Context(), roomID, body.StaffID, body.Type, body.Remarks)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) CleaningHistory(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.CleaningHistory(c.Request().Context(), roomID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) ListEquipment(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.EquipmentByRoom(c.Request().Context(), roomID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddEquipment(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	var e RoomEquipment
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.RoomID = roomID
	if _, err := h.svc.AddEquipment(c.Request().Context(), &e); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, e)
}

// -- Beds --

func (h *Handler) CreateBed(c echo.Context) error {
	var b Bed
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.svc.CreateBed(c.Request().Context(), &b); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.Bed(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	beds, err := h.svc.BedsByRoom(c.Request().Context(), roomID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) UpdateBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var u BedUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateBed(c.Request().Context(), id, u); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateBedStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status       BedStatus        `json:"status"`
		Maintenance  *MaintenanceInfo `json:"maintenanceInfo"`
		CleaningNote string           `json:"cleaningNote"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateBedStatus(c.Request().Context(), id, body.Status, body.Maintenance, body.CleaningNote); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Assign(c.Request().Context(), id, req); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReleaseBed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Release(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.Assignments(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) ListReleases(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	recs, err := h.svc.Releases(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, recs)
}

// -- Staff --

func (h *Handler) ListStaff(c echo.Context) error {
	wardID, err := pathID(c)
	if err != nil {
		return err
	}
	staff, err := h.svc.StaffByWard(c.Request().Context(), wardID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, staff)
}

func (h *Handler) AddStaff(c echo.Context) error {
	wardID, err := pathID(c)
	if err != nil {
		return err
	}
	var ws WardStaff
	if err := c.Bind(&ws); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ws.WardID = wardID
	if _, err := h.svc.AddStaff(c.Request().Context(), &ws); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, ws)
}
