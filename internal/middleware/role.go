package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
)

// RequireCapability aborts with 403 unless the principal stored by
// RequireUser or RequireAdmin holds every listed capability.  A request
// without a principal is answered with 401.
func RequireCapability(caps ...auth.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := auth.FromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			for _, cp := range caps {
				if !p.Can(cp) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
			}
			return next(c)
		}
	}
}
