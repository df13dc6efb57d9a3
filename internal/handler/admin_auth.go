package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/metrics"
	"github.com/iliyamo/fintrack/internal/middleware"
	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/ratelimit"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/utils"
)

// AdminAuthHandler serves /api/admin/auth.  Admin tokens live in their own
// cookie and never authenticate end-user routes.
type AdminAuthHandler struct {
	Cfg      config.Config
	Admins   *repository.AdminRepo
	Logs     *repository.AdminLogRepo
	Security *repository.SecurityEventRepo
	Limiter  ratelimit.Limiter
	Issuer   *auth.Issuer
	Cookie   auth.CookieConfig
}

type adminLoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminSetupReq struct {
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required,max=120"`
}

func adminBody(a *model.Admin) echo.Map {
	return echo.Map{"id": a.ID, "email": a.Email, "name": a.Name, "role": a.Role, "status": a.Status, "lastLogin": a.LastLoginAt}
}

// Login authenticates an administrator.  Every attempt from an IP counts
// toward the login limiter, successful or not.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cl := client(c)

	res, err := h.Limiter.Allow(ctx, "admin_login:"+middleware.ByIP(c))
	if err != nil {
		slog.Warn("admin login limiter unavailable", "error", err)
	} else {
		middleware.SetRateLimitHeaders(c, h.Limiter.Max(), res)
		if !res.Allowed {
			metrics.RateLimitedTotal.WithLabelValues("admin_login").Inc()
			if err := h.Security.Record(ctx, &model.SecurityEvent{
				Type:        model.SecurityRateLimited,
				Severity:    model.SeverityMedium,
				Description: "admin login rate limit exceeded",
				IPAddress:   cl.IP,
				UserAgent:   cl.UserAgent,
			}); err != nil {
				slog.Error("record rate limit event", "error", err)
			}
			return middleware.TooManyRequests(c, res)
		}
	}

	var req adminLoginReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	email := repository.NormalizeEmail(req.Email)

	a, err := h.Admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		h.recordFailure(c, "unknown admin email "+email)
		metrics.LoginsTotal.WithLabelValues("admin", "invalid").Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return internalError(c, "admin login: lookup", err)
	}
	if !a.Active() {
		metrics.LoginsTotal.WithLabelValues("admin", "suspended").Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is not active"})
	}
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		h.recordFailure(c, "wrong password for admin "+email)
		metrics.LoginsTotal.WithLabelValues("admin", "invalid").Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := h.signIn(c, a); err != nil {
		return internalError(c, "admin login: issue token", err)
	}
	at := now()
	if err := h.Admins.TouchLastLogin(ctx, a.ID, at); err != nil {
		slog.Error("admin login: touch last login", "error", err)
	}
	a.LastLoginAt = &at
	h.audit(c, a.ID, model.ActionLogin, "", "")
	metrics.LoginsTotal.WithLabelValues("admin", "success").Inc()
	return c.JSON(http.StatusOK, echo.Map{"admin": adminBody(a)})
}

func (h *AdminAuthHandler) recordFailure(c echo.Context, desc string) {
	cl := client(c)
	if err := h.Security.Record(c.Request().Context(), &model.SecurityEvent{
		Type:        model.SecurityAdminLoginFailed,
		Severity:    model.SeverityMedium,
		Description: desc,
		IPAddress:   cl.IP,
		UserAgent:   cl.UserAgent,
	}); err != nil {
		slog.Error("record admin login failure", "error", err)
	}
}

func (h *AdminAuthHandler) signIn(c echo.Context, a *model.Admin) error {
	raw, exp, err := h.Issuer.Issue(auth.AdminPrincipal(a), h.Cfg.AdminTTL)
	if err != nil {
		return err
	}
	h.Cookie.Set(c, raw, exp)
	return nil
}

// audit appends an AdminLog row; failures are logged only.
func (h *AdminAuthHandler) audit(c echo.Context, adminID, action, target, details string) {
	appendAudit(c, h.Logs, adminID, action, target, details)
}

func appendAudit(c echo.Context, logs *repository.AdminLogRepo, adminID, action, target, details string) {
	cl := client(c)
	err := logs.Append(c.Request().Context(), &model.AdminLog{
		AdminID:   adminID,
		Action:    action,
		Target:    target,
		Details:   details,
		IPAddress: cl.IP,
		UserAgent: cl.UserAgent,
	})
	if err != nil {
		slog.Error("admin audit", "action", action, "error", err)
	}
}

// Logout clears the admin cookie.  The LOGOUT entry is written only when
// the cookie still held a valid token.
func (h *AdminAuthHandler) Logout(c echo.Context) error {
	if raw := h.Cookie.Read(c); raw != "" {
		if p, err := h.Issuer.Parse(raw, auth.KindAdmin); err == nil {
			h.audit(c, p.ID, model.ActionLogout, "", "")
		}
	}
	h.Cookie.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the current admin after re-reading the admin row.
func (h *AdminAuthHandler) Me(c echo.Context) error {
	p, err := middleware.VerifyAdmin(c, h.Issuer, h.Cookie, h.Admins)
	if err != nil {
		h.Cookie.Clear(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Admins.GetByID(ctx, p.ID)
	if err != nil {
		h.Cookie.Clear(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"admin": adminBody(a)})
}

// SetupStatus tells the front-end whether the first admin is still missing.
func (h *AdminAuthHandler) SetupStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Admins.Count(ctx)
	if err != nil {
		return internalError(c, "admin setup status", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"needsSetup": n == 0})
}

// Setup creates the first SUPER_ADMIN and signs it in.
func (h *AdminAuthHandler) Setup(c echo.Context) error {
	var req adminSetupReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if weak, err := weakPassword(c, "password", req.Password); weak {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "admin setup: hash", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	cl := client(c)
	a := &model.Admin{Email: req.Email, Name: req.Name, PasswordHash: hash}
	err = h.Admins.CreateFirst(ctx, a, model.AdminLog{
		Details:   "initial super admin",
		IPAddress: cl.IP,
		UserAgent: cl.UserAgent,
	})
	if errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "setup already completed"})
	}
	if err != nil {
		return internalError(c, "admin setup: create", err)
	}
	if err := h.signIn(c, a); err != nil {
		return internalError(c, "admin setup: issue token", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"admin": adminBody(a)})
}
