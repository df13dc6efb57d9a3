package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/metrics"
	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/utils"
)

const (
	verificationTTL = 10 * time.Minute
	resetTokenTTL   = time.Hour
)

// AuthHandler serves the end-user credential endpoints under /api/auth.
type AuthHandler struct {
	Cfg         config.Config
	Users       *repository.UserRepo
	Tokens      *repository.TokenRepo
	Sessions    *repository.SessionRepo
	SessionLogs *repository.SessionLogRepo
	Security    *repository.SecurityEventRepo
	Mailer      Mailer
	Issuer      *auth.Issuer
	Cookie      auth.CookieConfig
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,max=72"`
}

type verifyEmailReq struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordReq struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

type userPart struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Image         string     `json:"image,omitempty"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
}

func toUserPart(u *model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.Image, EmailVerified: u.EmailVerifiedAt}
}

// Register creates an unverified user and mails a 6-digit code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if weak, err := weakPassword(c, "password", req.Password); weak {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	exists, err := h.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return internalError(c, "register: lookup", err)
	}
	if exists {
		metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "register: hash", err)
	}
	u := &model.User{Name: req.Name, Email: req.Email, PasswordHash: &hash}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return internalError(c, "register: create user", err)
	}
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()

	if err := h.issueVerificationCode(ctx, u.Email); err != nil {
		return internalError(c, "register: verification code", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "registration successful, check your email for the verification code",
		"user":    echo.Map{"id": u.ID, "email": u.Email, "name": u.Name},
	})
}

// issueVerificationCode replaces earlier codes and mails the new one.  A
// failed send is logged and not retried.
func (h *AuthHandler) issueVerificationCode(ctx context.Context, email string) error {
	code, err := utils.VerificationCode()
	if err != nil {
		return err
	}
	if err := h.Tokens.ReplaceVerificationCode(ctx, email, code, now().Add(verificationTTL)); err != nil {
		return err
	}
	if err := h.Mailer.SendVerificationEmail(ctx, email, code); err != nil {
		slog.Warn("verification email not sent", "email", email, "error", err)
	}
	return nil
}

// VerifyEmail confirms the (email, code) pair.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Tokens.ConsumeVerificationCode(ctx, req.Email, req.Code, now()); {
	case errors.Is(err, repository.ErrTokenInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification code"})
	case errors.Is(err, repository.ErrTokenExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification code expired"})
	case err != nil:
		return internalError(c, "verify email: consume code", err)
	}
	if err := h.Users.MarkVerified(ctx, req.Email, now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification code"})
		}
		return internalError(c, "verify email: mark verified", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// ResendVerification issues a fresh code for an unverified user.  The
// answer is the same whether or not the address exists.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && !u.Verified():
		if err := h.issueVerificationCode(ctx, u.Email); err != nil {
			return internalError(c, "resend verification", err)
		}
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return internalError(c, "resend verification: lookup", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists and is unverified, a new code was sent"})
}

// Login checks credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internalError(c, "login: lookup", err)
	}
	if u == nil || !u.HasPassword() || !utils.VerifyPassword(*u.PasswordHash, req.Password) {
		h.recordFailedLogin(ctx, c, u, req.Email)
		metrics.LoginsTotal.WithLabelValues("user", "invalid").Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.Verified() {
		metrics.LoginsTotal.WithLabelValues("user", "unverified").Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email not verified"})
	}

	if err := h.startSession(ctx, c, u); err != nil {
		return internalError(c, "login: start session", err)
	}
	metrics.LoginsTotal.WithLabelValues("user", "success").Inc()
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

func (h *AuthHandler) recordFailedLogin(ctx context.Context, c echo.Context, u *model.User, email string) {
	cl := client(c)
	ev := &model.SecurityEvent{
		Type:        model.SecurityFailedLogin,
		Severity:    model.SeverityLow,
		Description: "failed login for " + repository.NormalizeEmail(email),
		IPAddress:   cl.IP,
		UserAgent:   cl.UserAgent,
	}
	if u != nil {
		ev.UserID = &u.ID
		ev.Severity = model.SeverityMedium
	}
	if err := h.Security.Record(ctx, ev); err != nil {
		slog.Error("record failed login", "error", err)
	}
	if u != nil {
		if err := h.SessionLogs.Append(ctx, sessionLog(c, u.ID, "", model.EventLoginFailed)); err != nil {
			slog.Error("session log", "error", err)
		}
	}
}

// startSession stores a session row, sets the cookie and logs the login.
func (h *AuthHandler) startSession(ctx context.Context, c echo.Context, u *model.User) error {
	token, err := utils.RandomToken(32)
	if err != nil {
		return err
	}
	cl := client(c)
	s := &model.Session{
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: now().Add(h.Cfg.SessionTTL),
		IPAddress: cl.IP,
		UserAgent: cl.UserAgent,
	}
	if err := h.Sessions.Create(ctx, s); err != nil {
		return err
	}
	raw, exp, err := h.Issuer.Issue(auth.UserPrincipal(u, token), h.Cfg.SessionTTL)
	if err != nil {
		return err
	}
	h.Cookie.Set(c, raw, exp)
	if err := h.SessionLogs.Append(ctx, sessionLog(c, u.ID, s.ID, model.EventLogin)); err != nil {
		slog.Error("session log", "error", err)
	}
	return nil
}

// sessionLog builds a log row with device and location details.
func sessionLog(c echo.Context, userID, sessionID, event string) *model.SessionLog {
	cl := client(c)
	dev := utils.ParseUserAgent(cl.UserAgent)
	loc := utils.ClientLocation(c.Request().Header)
	return &model.SessionLog{
		UserID:    userID,
		SessionID: sessionID,
		Event:     event,
		IPAddress: cl.IP,
		UserAgent: cl.UserAgent,
		Device:    dev.Device,
		Browser:   dev.Browser,
		OS:        dev.OS,
		Country:   loc.Country,
		City:      loc.City,
	}
}

// Logout revokes the current session if the cookie still names one.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw := h.Cookie.Read(c); raw != "" {
		if p, err := h.Issuer.Parse(raw, auth.KindUser); err == nil {
			if s, err := h.Sessions.GetLiveByToken(ctx, p.SessionID, now()); err == nil && s.UserID == p.ID {
				if err := h.Sessions.Revoke(ctx, s.UserID, s.ID, now()); err != nil {
					return internalError(c, "logout: revoke", err)
				}
				if err := h.SessionLogs.Append(ctx, sessionLog(c, s.UserID, s.ID, model.EventLogout)); err != nil {
					slog.Error("session log", "error", err)
				}
			}
		}
	}
	h.Cookie.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Session returns the user behind a live session (RequireUser runs first).
func (h *AuthHandler) Session(c echo.Context) error {
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.Cookie.Clear(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return internalError(c, "session: load user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u), "sessionId": p.SessionID})
}

// ForgotPassword mails a reset link.  Unknown addresses get the same answer.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	const msg = "if an account exists for that email, a reset link was sent"
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"message": msg})
	}
	if err != nil {
		return internalError(c, "forgot password: lookup", err)
	}
	if err := issueResetToken(ctx, h.Tokens, h.Mailer, u.Email); err != nil {
		return internalError(c, "forgot password: issue token", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// issueResetToken stores the digest of a fresh token and mails the raw
// value.  Both the self-service and the admin-initiated flows use it.
func issueResetToken(ctx context.Context, tokens *repository.TokenRepo, m Mailer, email string) error {
	raw, hash, err := utils.NewResetToken()
	if err != nil {
		return err
	}
	if err := tokens.CreateResetToken(ctx, email, hash, now().Add(resetTokenTTL)); err != nil {
		return err
	}
	return m.SendPasswordResetEmail(ctx, email, raw)
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if weak, err := weakPassword(c, "password", req.Password); weak {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tok, err := h.Tokens.ClaimResetToken(ctx, utils.HashToken(req.Token), now())
	switch {
	case errors.Is(err, repository.ErrTokenInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or already used reset token"})
	case errors.Is(err, repository.ErrTokenExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reset token expired"})
	case err != nil:
		return internalError(c, "reset password: claim token", err)
	}

	u, err := h.Users.GetByEmail(ctx, tok.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or already used reset token"})
		}
		return internalError(c, "reset password: lookup", err)
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "reset password: hash", err)
	}
	if err := h.Users.SetPassword(ctx, u.ID, hash); err != nil {
		return internalError(c, "reset password: update", err)
	}
	if _, err := h.Tokens.InvalidateResetTokens(ctx, u.Email); err != nil {
		return internalError(c, "reset password: invalidate tokens", err)
	}
	if _, err := h.Sessions.RevokeAllExcept(ctx, u.ID, "", now()); err != nil {
		return internalError(c, "reset password: revoke sessions", err)
	}
	cl := client(c)
	if err := h.Security.Record(ctx, &model.SecurityEvent{
		UserID:      &u.ID,
		Type:        model.SecurityPasswordReset,
		Severity:    model.SeverityMedium,
		Description: "password reset with emailed token",
		IPAddress:   cl.IP,
		UserAgent:   cl.UserAgent,
	}); err != nil {
		slog.Error("record password reset", "error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
