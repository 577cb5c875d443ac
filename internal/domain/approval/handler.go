package approval

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
	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/dashboard", h.Dashboard)
	admin.GET("/approvals", h.ListPending)
	admin.POST("/doctors/:id/approve", h.decide(KindDoctor, true))
	admin.POST("/doctors/:id/reject", h.decide(KindDoctor, false))
	admin.POST("/patients/:id/approve", h.decide(KindPatient, true))
	admin.POST("/patients/:id/reject", h.decide(KindPatient, false))
}

func (h *Handler) decide(kind EntityKind, approve bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := auth.PrincipalFromContext(c.Request().Context())
		if err != nil {
			return apperr.HTTP(err)
		}
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		var dec *Decision
		if approve {
			dec, err = h.svc.Approve(c.Request().Context(), actor, kind, id)
		} else {
			dec, err = h.svc.Reject(c.Request().Context(), actor, kind, id)
		}
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, dec)
	}
}

// ListPending serves GET /admin/approvals?kind=doctor|patient.
func (h *Handler) ListPending(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	raw := c.QueryParam("kind")
	if raw == "" {
		raw = string(KindDoctor)
	}
	kind, err := ParseKind(raw)
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPending(c.Request().Context(), actor, kind, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Dashboard(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	dash, err := h.svc.Dashboard(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, dash)
}
