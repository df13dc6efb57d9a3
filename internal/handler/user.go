package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/storage"
	"github.com/iliyamo/fintrack/internal/utils"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 5 << 20

// UserHandler serves the profile, password, avatar and session endpoints
// under /api/user.
type UserHandler struct {
	Cfg         config.Config
	Users       *repository.UserRepo
	Sessions    *repository.SessionRepo
	SessionLogs *repository.SessionLogRepo
	Security    *repository.SecurityEventRepo
	Files       storage.FileStore
}

type updateProfileReq struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Image *string `json:"image" validate:"omitempty,max=512"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
}

type sessionView struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

func (h *UserHandler) Profile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, principal(c).ID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "user")
	}
	if err != nil {
		return internalError(c, "get profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u), "hasPassword": u.HasPassword(), "createdAt": u.CreatedAt})
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.UpdateProfile(ctx, principal(c).ID, req.Name, req.Image)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "user")
	}
	if err != nil {
		return internalError(c, "update profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// ChangePassword requires the current password and records a
// PASSWORD_CHANGED security event.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if weak, err := weakPassword(c, "newPassword", req.NewPassword); weak {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := principal(c)

	u, err := h.Users.GetByID(ctx, p.ID)
	if err != nil {
		return internalError(c, "change password: load", err)
	}
	if !u.HasPassword() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account has no password, use password reset to set one"})
	}
	if !utils.VerifyPassword(*u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current password is incorrect"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "change password: hash", err)
	}
	if err := h.Users.SetPassword(ctx, u.ID, hash); err != nil {
		return internalError(c, "change password: update", err)
	}
	h.recordEvent(c, u.ID, model.SecurityPasswordChanged, model.SeverityLow, "password changed by user")
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *UserHandler) recordEvent(c echo.Context, userID, typ, severity, desc string) {
	cl := client(c)
	if err := h.Security.Record(c.Request().Context(), &model.SecurityEvent{
		UserID:      &userID,
		Type:        typ,
		Severity:    severity,
		Description: desc,
		IPAddress:   cl.IP,
		UserAgent:   cl.UserAgent,
	}); err != nil {
		slog.Error("record security event", "type", typ, "error", err)
	}
}

// UploadAvatar stores an image from the multipart field "file" and saves
// its public URL as the user's image.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	ct := fh.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, "image/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file must be an image"})
	}
	if fh.Size > maxAvatarBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file exceeds 5MB"})
	}

	f, err := fh.Open()
	if err != nil {
		return internalError(c, "avatar: open upload", err)
	}
	defer f.Close()

	name, err := utils.RandomToken(8)
	if err != nil {
		return internalError(c, "avatar: name", err)
	}
	uid := principal(c).ID
	key := fmt.Sprintf("avatars/%s/%s%s", uid, name, avatarExt(fh.Filename, ct))

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Files.Put(ctx, key, f, fh.Size, ct); err != nil {
		return internalError(c, "avatar: store", err)
	}
	url := h.Files.URL(key)
	u, err := h.Users.UpdateProfile(ctx, uid, nil, &url)
	if err != nil {
		return internalError(c, "avatar: update profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url, "user": toUserPart(u)})
}

func avatarExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	}
	if sub := strings.TrimPrefix(contentType, "image/"); sub != "" && !strings.ContainsAny(sub, "/;+ ") {
		return "." + sub
	}
	return ".img"
}

// ListSessions lists the live sessions (current one flagged) and recent
// session activity.
func (h *UserHandler) ListSessions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := principal(c)

	active, err := h.Sessions.ListActive(ctx, p.ID, now())
	if err != nil {
		return internalError(c, "list sessions", err)
	}
	logs, err := h.SessionLogs.Recent(ctx, p.ID, 20)
	if err != nil {
		return internalError(c, "list session logs", err)
	}

	views := make([]sessionView, 0, len(active))
	for _, s := range active {
		dev := utils.ParseUserAgent(s.UserAgent)
		views = append(views, sessionView{
			ID:        s.ID,
			IPAddress: s.IPAddress,
			Device:    dev.Device,
			Browser:   dev.Browser,
			OS:        dev.OS,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == p.SessionID,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": views, "recentActivity": logs})
}

// RevokeOtherSessions ends every session except the current one.  The
// REVOKED log rows are written after the revocation, in one batch.
func (h *UserHandler) RevokeOtherSessions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p := principal(c)

	revoked, err := h.Sessions.RevokeAllExcept(ctx, p.ID, p.SessionID, now())
	if err != nil {
		return internalError(c, "revoke sessions", err)
	}
	logs := make([]model.SessionLog, 0, len(revoked))
	for _, s := range revoked {
		l := sessionLog(c, p.ID, s.ID, model.EventRevoked)
		logs = append(logs, *l)
	}
	if err := h.SessionLogs.AppendMany(ctx, logs); err != nil {
		slog.Error("revoke sessions: session logs", "error", err)
	}
	if len(revoked) > 0 {
		h.recordEvent(c, p.ID, model.SecuritySessionsRevoked, model.SeverityLow,
			fmt.Sprintf("%d other sessions revoked", len(revoked)))
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": len(revoked)})
}

// RevokeSession ends one owned session other than the current one.
func (h *UserHandler) RevokeSession(c echo.Context) error {
	p := principal(c)
	id := c.Param("id")
	if id == p.SessionID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "use logout to end the current session"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sessions.Revoke(ctx, p.ID, id, now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "session")
		}
		return internalError(c, "revoke session", err)
	}
	if err := h.SessionLogs.Append(ctx, sessionLog(c, p.ID, id, model.EventRevoked)); err != nil {
		slog.Error("revoke session: session log", "error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "session revoked"})
}

// SecurityEvents lists the caller's own security events.
func (h *UserHandler) SecurityEvents(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	pg := page(c)
	events, total, err := h.Security.List(ctx, repository.SecurityEventFilter{
		UserID:   principal(c).ID,
		Resolved: queryBool(c, "resolved"),
	}, pg)
	if err != nil {
		return internalError(c, "list own security events", err)
	}
	return c.JSON(http.StatusOK, paged(events, total, pg))
}
