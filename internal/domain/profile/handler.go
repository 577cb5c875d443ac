package profile

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/pkg/pagination"
)

type Handler struct {
	svc              *Service
	allowAdminSignup bool
}

func NewHandler(svc *Service, allowAdminSignup bool) *Handler {
	return &Handler{svc: svc, allowAdminSignup: allowAdminSignup}
}

func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST(auth.SignupPath(auth.RoleDoctor), h.RegisterDoctor)
	g.POST(auth.SignupPath(auth.RolePatient), h.RegisterPatient)
	if h.allowAdminSignup {
		g.POST(auth.SignupPath(auth.RoleAdmin), h.RegisterAdmin)
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.Me)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/doctors", h.ListDoctors)
	admin.GET("/doctors/:id", h.GetDoctor)
	admin.GET("/patients", h.ListPatients)
	admin.GET("/patients/:id", h.GetPatient)
	admin.PUT("/patients/:id/doctor", h.AssignDoctor)

	patient := api.Group("/patient", auth.RequireRole(auth.RolePatient))
	patient.GET("/doctors", h.ListDoctors)
	patient.GET("/doctors/:id", h.GetDoctor)

	doctor := api.Group("/doctor", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/patients", h.ListPatientsOfDoctor)
	doctor.GET("/patients/:id", h.GetPatient)
}

func (h *Handler) RegisterDoctor(c echo.Context) error {
	var req RegisterDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.RegisterDoctor(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req RegisterPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.RegisterPatient(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) RegisterAdmin(c echo.Context) error {
	var req RegisterAdminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.RegisterAdmin(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Me(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	me, err := h.svc.Me(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, me)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetPatient(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	status, err := statusParam(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), actor, status, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListPatients(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	status, err := statusParam(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), actor, status, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListPatientsOfDoctor(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatientsOfDoctor(c.Request().Context(), actor, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	actor, err := auth.PrincipalFromContext(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AssignDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	p, err := h.svc.AssignDoctor(c.Request().Context(), actor, id, req.DoctorID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

// statusParam reads ?status=; absent means every status.
func statusParam(c echo.Context) (Status, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		return "", nil
	}
	return ParseStatus(raw)
}
