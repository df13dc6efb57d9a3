package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/handler"
	"github.com/iliyamo/fintrack/internal/middleware"
)

// RegisterAdminAuth registers the admin login, logout, identity and
// first-run setup routes under /api/admin/auth.  None of them require an
// existing admin cookie; /me validates the cookie itself.
func RegisterAdminAuth(e *echo.Echo, h *handler.AdminAuthHandler) {
	g := e.Group("/api/admin/auth")
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.GET("/setup", h.SetupStatus)
	g.POST("/setup", h.Setup)
}

// RegisterAdmin registers the back-office under /api/admin.  Every route
// requires an ACTIVE admin whose role still matches the token; reads need
// CapAdminRead, mutations CapAdminWrite and admin management
// CapManageAdmins.  The dashboard stats go through the response cache.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, aa *handler.AdminAuthHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api/admin", middleware.RequireAdmin(aa.Issuer, aa.Cookie, aa.Admins))

	read := middleware.RequireCapability(auth.CapAdminRead)
	write := middleware.RequireCapability(auth.CapAdminWrite)
	manage := middleware.RequireCapability(auth.CapManageAdmins)

	if cache == nil {
		g.GET("/stats", h.Stats, read)
	} else {
		g.GET("/stats", h.Stats, read, cache)
	}

	g.GET("/users", h.ListUsers, read)
	g.GET("/users/:id", h.GetUser, read)
	g.POST("/users/:id/password-reset", h.RequestPasswordReset, write)

	g.GET("/admins", h.ListAdmins, manage)
	g.POST("/admins", h.CreateAdmin, manage)
	g.PATCH("/admins/:id/status", h.UpdateAdminStatus, manage)
	g.GET("/logs", h.ListLogs, read)

	g.GET("/security-events", h.ListSecurityEvents, read)
	g.PATCH("/security-events/:id/resolve", h.ResolveSecurityEvent, write)
	g.GET("/session-logs", h.ListSessionLogs, read)

	g.GET("/data-requests", h.ListDataRequests, read)
	g.PATCH("/data-requests/:id", h.UpdateDataRequest, write)
}
