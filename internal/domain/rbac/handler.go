package rbac

import (
	"net/http"
	"strconv"

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
	api.POST("/permissions", h.CreatePermission)
	api.GET("/permissions", h.ListPermissions)
	api.PATCH("/permissions/:id/status", h.SetPermissionStatus)
	api.DELETE("/permissions/:id", h.DeletePermission)

	api.POST("/roles", h.CreateRole)
	api.GET("/roles", h.ListRoles)
	api.GET("/roles/:id", h.GetRole)
	api.PUT("/roles/:id/permissions", h.SetRolePermissions)
	api.PATCH("/roles/:id/status", h.SetRoleStatus)
	api.DELETE("/roles/:id", h.DeleteRole)

	api.GET("/users/:id/permissions", h.UserPermissions)
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

func (h *Handler) CreatePermission(c echo.Context) error {
	var p Permission
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.svc.CreatePermission(c.Request().Context(), &p)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ListPermissions(c echo.Context) error {
	perms, err := h.svc.Permissions(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, perms)
}

func (h *Handler) SetPermissionStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status EntityStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetPermissionStatus(c.Request().Context(), id, body.Status); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeletePermission(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePermission(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateRole(c echo.Context) error {
	var r Role
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.svc.CreateRole(c.Request().Context(), &r)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ListRoles(c echo.Context) error {
	roles, err := h.svc.Roles(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) GetRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Role(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) SetRolePermissions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		PermissionIDs []int64 `json:"permissionIds"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetRolePermissions(c.Request().Context(), id, body.PermissionIDs); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetRoleStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status EntityStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetRoleStatus(c.Request().Context(), id, body.Status); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRole(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UserPermissions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	perms, err := h.svc.UserPermissions(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, perms)
}
