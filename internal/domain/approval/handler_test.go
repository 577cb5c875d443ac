package approval

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/pkg/pagination"
)

func newContext(method, target string, actor auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), actor))
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_Approve(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	d := env.pendingDoctor(t)

	c, rec := newContext(http.MethodPost, "/api/v1/admin/doctors/"+d.ID.String()+"/approve", admin)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	if err := h.decide(KindDoctor, true)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var dec Decision
	json.Unmarshal(rec.Body.Bytes(), &dec)
	if dec.Status != profile.StatusApproved {
		t.Errorf("expected approved, got %s", dec.Status)
	}

	c, _ = newContext(http.MethodPost, "/api/v1/admin/doctors/"+d.ID.String()+"/approve", admin)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	if got := httpStatus(t, h.decide(KindDoctor, true)(c)); got != http.StatusConflict {
		t.Errorf("expected 409 on second approve, got %d", got)
	}
}

func TestHandler_Reject_NotFound(t *testing.T) {
	h := NewHandler(newTestEnv().svc)
	c, _ := newContext(http.MethodPost, "/api/v1/admin/patients/x/reject", admin)
	c.SetParamNames("id")
	c.SetParamValues("00000000-0000-0000-0000-000000000001")
	if got := httpStatus(t, h.decide(KindPatient, false)(c)); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}

	c, _ = newContext(http.MethodPost, "/api/v1/admin/patients/x/reject", admin)
	c.SetParamNames("id")
	c.SetParamValues("x")
	if got := httpStatus(t, h.decide(KindPatient, false)(c)); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}
}

func TestHandler_ListPending(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	env.pendingPatient(t)

	c, rec := newContext(http.MethodGet, "/api/v1/admin/approvals?kind=patient", admin)
	if err := h.ListPending(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page pagination.Response[Applicant]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Data[0].Kind != KindPatient {
		t.Errorf("expected one pending patient, got %+v", page)
	}

	c, _ = newContext(http.MethodGet, "/api/v1/admin/approvals?kind=nurse", admin)
	if got := httpStatus(t, h.ListPending(c)); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}
}

func TestHandler_Dashboard(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	env.pendingDoctor(t)

	c, rec := newContext(http.MethodGet, "/api/v1/admin/dashboard", admin)
	if err := h.Dashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var dash Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.Doctors[profile.StatusPending] != 1 {
		t.Errorf("expected one pending doctor, got %v", dash.Doctors)
	}
}
