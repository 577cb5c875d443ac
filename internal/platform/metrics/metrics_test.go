package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	return rec.Body.String()
}

func assertSample(t *testing.T, body, sample string) {
	t.Helper()
	if !strings.Contains(body, sample) {
		t.Errorf("expected exposition to contain %q", sample)
	}
}

func TestMiddleware_CountsByRoute(t *testing.T) {
	r := New()
	e := echo.New()
	e.Use(r.Middleware())
	e.GET("/api/v1/discharges/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "duplicate")
	})

	for _, path := range []string{"/api/v1/discharges/1", "/api/v1/discharges/2", "/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, r)
	assertSample(t, body, `hms_http_requests_total{method="GET",route="/api/v1/discharges/:id",status_code="200"} 2`)
	assertSample(t, body, `hms_http_requests_total{method="GET",route="/fail",status_code="409"} 1`)
}

func TestObserveLogin(t *testing.T) {
	r := New()
	r.ObserveLogin("patient", "success")
	r.ObserveLogin("patient", "failure")
	r.ObserveLogin("patient", "failure")

	assertSample(t, scrape(t, r), `hms_auth_attempts_total{outcome="failure",role="patient"} 2`)
}

func TestEventCounter(t *testing.T) {
	r := New()
	pub := r.EventCounter()
	_ = pub.Publish(context.Background(), events.Event{Type: events.PatientDischarged})
	_ = pub.Publish(context.Background(), events.Event{Type: events.PatientDischarged})
	_ = pub.Publish(context.Background(), events.Event{Type: events.DoctorApproved})

	body := scrape(t, r)
	assertSample(t, body, `hms_workflow_events_total{type="patient.discharged"} 2`)
	assertSample(t, body, `hms_workflow_events_total{type="doctor.approved"} 1`)
}
