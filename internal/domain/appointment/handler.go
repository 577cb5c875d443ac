package appointment

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
	patient := api.Group("/patient", auth.RequireRole(auth.RolePatient))
	patient.POST("/appointments", h.Book)
	patient.GET("/appointments", h.ListForPatient)
	patient.GET("/appointments/:id", h.Get)
	patient.POST("/appointments/:id/cancel", h.Cancel)

	doctor := api.Group("/doctor", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/appointments", h.ListForDoctor)
	doctor.GET("/appointments/:id", h.Get)
	doctor.POST("/appointments/:id/cancel", h.Cancel)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/appointments", h.ListAll)
	admin.POST("/appointments", h.Book)
	admin.GET("/appointments/:id", h.Get)
	admin.POST("/appointments/:id/cancel", h.Cancel)
}

func (h *Handler) Book(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), actor, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req CancelRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	a, err := h.svc.Cancel(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
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
	a, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
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

func (h *Handler) ListForDoctor(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), actor, pg.Limit, pg.Offset)
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
	status, err := ParseStatus(c.QueryParam("status"))
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), actor, status, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
