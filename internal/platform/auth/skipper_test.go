package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextForRoute(method, route string) echo.Context {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(method, route, nil), httptest.NewRecorder())
	c.SetPath(route)
	return c
}

func TestRolePaths(t *testing.T) {
	if got := SignupPath(RoleDoctor); got != "/doctorsignup" {
		t.Errorf("SignupPath(doctor) = %q", got)
	}
	if got := LoginPath(RolePatient); got != "/patientlogin" {
		t.Errorf("LoginPath(patient) = %q", got)
	}
}

func TestAuthSkipper_SignupAndLoginForEveryRole(t *testing.T) {
	for _, r := range Roles {
		for _, route := range []string{SignupPath(r), LoginPath(r)} {
			if !AuthSkipper(contextForRoute(http.MethodPost, route)) {
				t.Errorf("%s should not require a token", route)
			}
		}
	}
}

func TestAuthSkipper(t *testing.T) {
	tests := []struct {
		route string
		skip  bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/metrics", true},
		{"/health/extra", false},
		{"/", false},
		{"/nursesignup", false},
		{"/api/v1/adminlogin", false},
		{"/api/v1/admin/dashboard", false},
		{"/api/v1/discharges/:id", false},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			if got := AuthSkipper(contextForRoute(http.MethodGet, tt.route)); got != tt.skip {
				t.Errorf("AuthSkipper(%s) = %v, want %v", tt.route, got, tt.skip)
			}
		})
	}
}

func TestJWTMiddleware_LoginRouteNeedsNoToken(t *testing.T) {
	c := contextForRoute(http.MethodPost, LoginPath(RoleAdmin))

	called := false
	err := JWTMiddleware(newTestIssuer(), AuthSkipper)(func(c echo.Context) error {
		called = true
		if _, perr := PrincipalFromContext(c.Request().Context()); perr == nil {
			t.Error("login request should carry no principal")
		}
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("expected no error on the login route, got %v", err)
	}
	if !called {
		t.Error("login handler was not reached")
	}
}
