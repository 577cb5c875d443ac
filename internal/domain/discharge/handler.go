package discharge

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/discharges", h.Discharge, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	api.GET("/discharges/:id", h.Get)

	patient := api.Group("/patient", auth.RequireRole(auth.RolePatient))
	patient.GET("/discharges", h.ListForPatient)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/discharges", h.ListAll)
	admin.GET("/patients/:id/episode", h.CurrentEpisode)
	admin.POST("/patients/:id/readmit", h.Readmit)
}

func (h *Handler) Discharge(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var req DischargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Discharge(c.Request().Context(), actor, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), actor, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListAll(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), actor, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CurrentEpisode(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.CurrentEpisode(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Readmit(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Readmit(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}
