package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/fintrack/internal/middleware" // import middleware for cookie authentication, capabilities and rate limiting
	"github.com/iliyamo/fintrack/internal/ratelimit"
)

// RegisterRoutes registers the unauthenticated platform routes: the health
// check used by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the end-user authentication routes under
// /api/auth.  Login is throttled per client IP; /session requires a live
// session cookie.  The OAuth routes are skipped when o is nil.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o *handler.OAuthHandler, loginLimiter ratelimit.Limiter) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/verify-email", a.VerifyEmail)
	g.POST("/resend-verification", a.ResendVerification)
	g.POST("/login", a.Login, middleware.RateLimit("user_login", loginLimiter, middleware.ByIP))
	// Logout does not require a live session: an expired cookie is still
	// cleared on the client.
	g.POST("/logout", a.Logout)
	g.GET("/session", a.Session, middleware.RequireUser(a.Issuer, a.Cookie, a.Sessions))
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	if o != nil {
		g.GET("/oauth/google", o.Start)
		g.GET("/oauth/google/callback", o.Callback)
	}
}

// userGroup returns a group whose routes require a live end-user session.
func userGroup(e *echo.Echo, prefix string, iss *auth.Issuer, cookie auth.CookieConfig, sessions middleware.SessionLookup) *echo.Group {
	return e.Group(prefix,
		middleware.RequireUser(iss, cookie, sessions),
		middleware.RequireCapability(auth.CapOwnData),
	)
}
