package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/utils"
)

// AdminHandler serves the back-office under /api/admin.  Every route runs
// behind RequireAdmin and a capability check.
type AdminHandler struct {
	Cfg         config.Config
	Users       *repository.UserRepo
	Tokens      *repository.TokenRepo
	Admins      *repository.AdminRepo
	Logs        *repository.AdminLogRepo
	Sessions    *repository.SessionRepo
	SessionLogs *repository.SessionLogRepo
	Security    *repository.SecurityEventRepo
	Budgets     *repository.BudgetRepo
	Privacy     *repository.PrivacyRepo
	Mailer      Mailer
}

// Stats gathers the dashboard counters concurrently.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	var users, verified, newUsers, sessions, unresolved, pending, budgets int64
	t := now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { users, err = h.Users.Count(gctx, false, time.Time{}); return })
	g.Go(func() (err error) { verified, err = h.Users.Count(gctx, true, time.Time{}); return })
	g.Go(func() (err error) { newUsers, err = h.Users.Count(gctx, false, t.AddDate(0, 0, -30)); return })
	g.Go(func() (err error) { sessions, err = h.Sessions.CountActive(gctx, t); return })
	g.Go(func() (err error) { unresolved, err = h.Security.CountUnresolved(gctx); return })
	g.Go(func() (err error) { pending, err = h.Privacy.CountPendingDataRequests(gctx); return })
	g.Go(func() (err error) { budgets, err = h.Budgets.Count(gctx); return })
	if err := g.Wait(); err != nil {
		return internalError(c, "admin stats", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"totalUsers":               users,
		"verifiedUsers":            verified,
		"newUsersLast30Days":       newUsers,
		"activeSessions":           sessions,
		"unresolvedSecurityEvents": unresolved,
		"pendingDataRequests":      pending,
		"totalBudgets":             budgets,
		"generatedAt":              t,
	})
}

// ListUsers pages through users with an optional search term.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := page(c)
	users, total, err := h.Users.List(ctx, c.QueryParam("search"), p)
	if err != nil {
		return internalError(c, "admin list users", err)
	}
	return c.JSON(http.StatusOK, paged(users, total, p))
}

// GetUser returns one user with recent activity and records the access.
func (h *AdminHandler) GetUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	id := c.Param("id")

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "user")
	}
	if err != nil {
		return internalError(c, "admin get user", err)
	}

	var (
		logs   []model.SessionLog
		events []model.SecurityEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { logs, err = h.SessionLogs.Recent(gctx, id, 10); return })
	g.Go(func() (err error) {
		events, _, err = h.Security.List(gctx, repository.SecurityEventFilter{UserID: id}, repository.NewPage(1, 10))
		return
	})
	if err := g.Wait(); err != nil {
		return internalError(c, "admin get user: activity", err)
	}

	appendAudit(c, h.Logs, principal(c).ID, model.ActionUserViewed, u.ID, "")
	return c.JSON(http.StatusOK, echo.Map{"user": u, "sessionLogs": logs, "securityEvents": events})
}

// RequestPasswordReset emails a reset link to the user on an admin's behalf.
func (h *AdminHandler) RequestPasswordReset(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "user")
	}
	if err != nil {
		return internalError(c, "admin password reset: lookup", err)
	}
	if err := issueResetToken(ctx, h.Tokens, h.Mailer, u.Email); err != nil {
		return internalError(c, "admin password reset: issue token", err)
	}
	appendAudit(c, h.Logs, principal(c).ID, model.ActionPasswordResetRequested, u.ID, u.Email)
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset email sent"})
}

// ----- administrators -----

type createAdminReq struct {
	Email    string `json:"email" validate:"required,email,max=191"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN SUPER_ADMIN"`
}

type adminStatusReq struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED"`
}

func (h *AdminHandler) ListAdmins(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	admins, err := h.Admins.List(ctx)
	if err != nil {
		return internalError(c, "list admins", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"admins": admins})
}

func (h *AdminHandler) CreateAdmin(c echo.Context) error {
	var req createAdminReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if weak, err := weakPassword(c, "password", req.Password); weak {
		return err
	}
	if req.Role == "" {
		req.Role = model.RoleAdmin
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "create admin: hash", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	a := &model.Admin{Email: req.Email, Name: req.Name, PasswordHash: hash, Role: req.Role}
	if err := h.Admins.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return internalError(c, "create admin", err)
	}
	appendAudit(c, h.Logs, principal(c).ID, model.ActionAdminCreated, a.ID, a.Role)
	return c.JSON(http.StatusCreated, echo.Map{"admin": adminBody(a)})
}

func (h *AdminHandler) UpdateAdminStatus(c echo.Context) error {
	var req adminStatusReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Admins.SetStatus(ctx, principal(c).ID, c.Param("id"), req.Status)
	switch {
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot change your own status"})
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "admin")
	case err != nil:
		return internalError(c, "update admin status", err)
	}
	appendAudit(c, h.Logs, principal(c).ID, model.ActionAdminStatusChanged, a.ID, req.Status)
	return c.JSON(http.StatusOK, echo.Map{"admin": adminBody(a)})
}

// ListLogs returns the admin audit trail.
func (h *AdminHandler) ListLogs(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := page(c)
	logs, total, err := h.Logs.List(ctx, repository.AdminLogFilter{
		AdminID: c.QueryParam("adminId"),
		Action:  c.QueryParam("action"),
	}, p)
	if err != nil {
		return internalError(c, "list admin logs", err)
	}
	return c.JSON(http.StatusOK, paged(logs, total, p))
}

// ----- security and sessions -----

func (h *AdminHandler) ListSecurityEvents(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := page(c)
	events, total, err := h.Security.List(ctx, repository.SecurityEventFilter{
		UserID:   c.QueryParam("userId"),
		Severity: c.QueryParam("severity"),
		Type:     c.QueryParam("type"),
		Resolved: queryBool(c, "resolved"),
	}, p)
	if err != nil {
		return internalError(c, "list security events", err)
	}
	return c.JSON(http.StatusOK, paged(events, total, p))
}

func (h *AdminHandler) ResolveSecurityEvent(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	adminID := principal(c).ID

	ev, err := h.Security.Resolve(ctx, c.Param("id"), adminID, now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "security event")
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "security event already resolved"})
	case err != nil:
		return internalError(c, "resolve security event", err)
	}
	appendAudit(c, h.Logs, adminID, model.ActionSecurityEventResolved, ev.ID, ev.Type)
	return c.JSON(http.StatusOK, echo.Map{"event": ev})
}

func (h *AdminHandler) ListSessionLogs(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := page(c)
	logs, total, err := h.SessionLogs.List(ctx, repository.SessionLogFilter{
		UserID: c.QueryParam("userId"),
		Event:  c.QueryParam("event"),
	}, p)
	if err != nil {
		return internalError(c, "list session logs", err)
	}
	return c.JSON(http.StatusOK, paged(logs, total, p))
}

// ----- data requests -----

type dataRequestStatusReq struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED REJECTED"`
}

func (h *AdminHandler) ListDataRequests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := page(c)
	reqs, total, err := h.Privacy.AllDataRequests(ctx, c.QueryParam("status"), p)
	if err != nil {
		return internalError(c, "list data requests", err)
	}
	return c.JSON(http.StatusOK, paged(reqs, total, p))
}

func (h *AdminHandler) UpdateDataRequest(c echo.Context) error {
	var req dataRequestStatusReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	dr, err := h.Privacy.UpdateDataRequestStatus(ctx, c.Param("id"), req.Status, now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "data request")
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "data request already finished"})
	case err != nil:
		return internalError(c, "update data request", err)
	}
	appendAudit(c, h.Logs, principal(c).ID, model.ActionDataRequestUpdated, dr.ID, req.Status)
	return c.JSON(http.StatusOK, echo.Map{"request": dr})
}
