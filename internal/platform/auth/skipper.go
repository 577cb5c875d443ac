package auth

import (
	"github.com/labstack/echo/v4"
)

// infraPaths are served to load balancers and scrapers.
var infraPaths = []string{"/health", "/health/db", "/metrics"}

// publicPaths holds every route that is reachable before an account has a
// token: the infrastructure endpoints plus /<role>signup and /<role>login
// for each role.
var publicPaths = buildPublicPaths()

func buildPublicPaths() map[string]struct{} {
	paths := make(map[string]struct{}, len(infraPaths)+2*len(Roles))
	for _, p := range infraPaths {
		paths[p] = struct{}{}
	}
	for _, r := range Roles {
		paths[SignupPath(r)] = struct{}{}
		paths[LoginPath(r)] = struct{}{}
	}
	return paths
}

// SignupPath is the registration route for a role, e.g. /doctorsignup.
func SignupPath(r Role) string { return "/" + string(r) + "signup" }

// LoginPath is the login route for a role, e.g. /patientlogin.
func LoginPath(r Role) string { return "/" + string(r) + "login" }

// AuthSkipper matches on the registered route pattern, so /health/extra or
// /api/v1/adminlogin still require a token.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	_, ok := publicPaths[path]
	return ok
}
