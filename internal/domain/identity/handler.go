package identity

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wardkit/wardkit/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the open auth endpoints on public and the
// session-guarded account endpoints on api.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
	api.POST("/auth/password", h.ChangePassword)
	api.GET("/users", h.ListUsers)
	api.GET("/users/:id", h.GetUser)
	api.PUT("/users/:id/roles", h.AssignRoles)
	api.PATCH("/users/:id/status", h.SetStatus)
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

// BearerToken extracts the opaque session token from the Authorization
// header.
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.TrimPrefix(auth, "Bearer ")
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		DeviceInfo string `json:"deviceInfo"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, user, err := h.svc.Login(c.Request().Context(), req.Username, req.Password, req.DeviceInfo)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"token": token, "user": user.Sanitized()})
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context(), BearerToken(c)); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	user, err := h.svc.ValidateSession(c.Request().Context(), BearerToken(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, user.Sanitized())
}

func (h *Handler) ChangePassword(c echo.Context) error {
	user, err := h.svc.ValidateSession(c.Request().Context(), BearerToken(c))
	if err != nil {
		return fail(err)
	}
	var body struct {
		Current string `json:"current"`
		New     string `json:"new"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ChangePassword(c.Request().Context(), user.ID, body.Current, body.New); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.Users(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = u.Sanitized()
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.User(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, u.Sanitized())
}

func (h *Handler) AssignRoles(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		RoleIDs []int64 `json:"roleIds"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AssignRoles(c.Request().Context(), id, body.RoleIDs); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status UserStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetStatus(c.Request().Context(), id, body.Status); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
