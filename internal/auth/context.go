package auth

import "github.com/labstack/echo/v4"

const contextKey = "principal"

// WithPrincipal stores p on the request context.
func WithPrincipal(c echo.Context, p Principal) { c.Set(contextKey, &p) }

// FromContext returns the principal stored by the auth middleware.
func FromContext(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(contextKey).(*Principal)
	return p, ok && p != nil
}
