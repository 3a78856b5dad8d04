package auth

import (
	"github.com/labstack/echo/v4"
)

// infraPaths need neither a token nor a clinic connection.
var infraPaths = map[string]bool{
	"/health":           true,
	"/health/db":        true,
	"/metrics":          true,
	"/api/openapi.json": true,
	"/api/docs":         true,
}

const loginPath = "/api/auth/login"

// publicPaths are route patterns reachable without a token: the login
// endpoint and the read-only lookups used by the prescription form.
var publicPaths = map[string]bool{
	loginPath:              true,
	"/api/medicines":       true,
	"/api/patients/search": true,
	"/api/templates/:id":   true,
}

// AuthSkipper returns true for requests whose route skips authentication.
func AuthSkipper(c echo.Context) bool {
	return infraPaths[c.Path()] || publicPaths[c.Path()]
}

// InfraSkipper returns true for infrastructure endpoints that bypass the
// clinic middleware as well.
func InfraSkipper(c echo.Context) bool {
	return infraPaths[c.Path()]
}

// IsPublicPath reports whether the route pattern is reachable without a token.
func IsPublicPath(path string) bool {
	return infraPaths[path] || publicPaths[path]
}

// ClinicSelectable reports whether an anonymous request may name its clinic
// by header or query. Only login may; the token it issues carries the clinic
// for every later request.
func ClinicSelectable(c echo.Context) bool {
	return c.Path() == loginPath
}
