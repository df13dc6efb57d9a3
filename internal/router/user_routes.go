package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/handler"
)

// UserHandlers bundles the handlers behind the end-user session cookie.
type UserHandlers struct {
	Auth          *handler.AuthHandler // supplies the issuer, cookie and session lookup
	Budgets       *handler.BudgetHandler
	Notifications *handler.NotificationHandler
	Reports       *handler.ReportHandler
	User          *handler.UserHandler
	Privacy       *handler.PrivacyHandler
}

// RegisterUser registers the owned-data routes.  All of them require a
// live session and scope every query to the session's user.
func RegisterUser(e *echo.Echo, h UserHandlers) {
	iss, cookie, sessions := h.Auth.Issuer, h.Auth.Cookie, h.Auth.Sessions

	b := userGroup(e, "/api/budgets", iss, cookie, sessions)
	b.GET("", h.Budgets.List)
	b.POST("", h.Budgets.Create)
	b.PUT("/:id", h.Budgets.Update)
	b.DELETE("/:id", h.Budgets.Delete)

	n := userGroup(e, "/api/notifications", iss, cookie, sessions)
	n.GET("", h.Notifications.List)
	n.POST("", h.Notifications.Create)
	n.PATCH("/read-all", h.Notifications.MarkAllRead)
	n.PATCH("/:id/read", h.Notifications.MarkRead)
	n.DELETE("/:id", h.Notifications.Delete)

	r := userGroup(e, "/api/reports", iss, cookie, sessions)
	r.GET("/custom", h.Reports.ListCustom)
	r.POST("/custom", h.Reports.CreateCustom)
	r.PATCH("/custom/:id/favorite", h.Reports.ToggleFavorite)
	r.DELETE("/custom/:id", h.Reports.DeleteCustom)
	r.GET("", h.Reports.List)
	r.POST("", h.Reports.Generate)
	r.GET("/:id/download", h.Reports.Download)

	u := userGroup(e, "/api/user", iss, cookie, sessions)
	u.GET("/profile", h.User.Profile)
	u.PATCH("/profile", h.User.UpdateProfile)
	u.PUT("/password", h.User.ChangePassword)
	u.POST("/avatar", h.User.UploadAvatar)
	u.GET("/sessions", h.User.ListSessions)
	u.DELETE("/sessions", h.User.RevokeOtherSessions)
	u.DELETE("/sessions/:id", h.User.RevokeSession)
	u.GET("/security-events", h.User.SecurityEvents)

	u.GET("/consent", h.Privacy.Consents)
	u.POST("/consent", h.Privacy.UpdateConsents)
	u.GET("/data-export", h.Privacy.Export)
	u.POST("/data-request", h.Privacy.CreateDataRequest)
	u.GET("/data-request", h.Privacy.DataRequests)
}
