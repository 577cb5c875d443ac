package account

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the three login endpoints, one per role.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	for _, r := range auth.Roles {
		g.POST(auth.LoginPath(r), h.Login(r))
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.PUT("/me/password", h.ChangePassword)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/accounts/:id/password", h.ResetPassword)
}

func (h *Handler) Login(role auth.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req LoginRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.Username == "" || req.Password == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
		}
		tok, err := h.svc.Authenticate(c.Request().Context(), req.Username, req.Password, role)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, tok)
	}
}

func (h *Handler) ChangePassword(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResetPassword(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), actor, id, req.NewPassword); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
