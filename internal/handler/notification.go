package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
)

type NotificationHandler struct {
	Notifications *repository.NotificationRepo
}

type createNotificationReq struct {
	Type    string `json:"type" validate:"omitempty,oneof=INFO WARNING BUDGET_ALERT SECURITY SYSTEM"`
	Title   string `json:"title" validate:"required,max=191"`
	Message string `json:"message" validate:"max=2000"`
	Link    string `json:"link" validate:"omitempty,max=512"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID

	unread := queryBool(c, "unread")
	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	items, err := h.Notifications.List(ctx, uid, unread != nil && *unread, limit)
	if err != nil {
		return internalError(c, "list notifications", err)
	}
	count, err := h.Notifications.CountUnread(ctx, uid)
	if err != nil {
		return internalError(c, "count unread notifications", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items, "unreadCount": count})
}

func (h *NotificationHandler) Create(c echo.Context) error {
	var req createNotificationReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	if req.Type == "" {
		req.Type = model.NotificationInfo
	}
	n := &model.Notification{
		UserID:  principal(c).ID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		Link:    req.Link,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Notifications.Create(ctx, n); err != nil {
		return internalError(c, "create notification", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"notification": n})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.MarkRead(ctx, principal(c).ID, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "notification")
	}
	if err != nil {
		return internalError(c, "mark notification read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notification": n})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.MarkAllRead(ctx, principal(c).ID)
	if err != nil {
		return internalError(c, "mark all notifications read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Notifications.Delete(ctx, principal(c).ID, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "notification")
		}
		return internalError(c, "delete notification", err)
	}
	return c.NoContent(http.StatusNoContent)
}
