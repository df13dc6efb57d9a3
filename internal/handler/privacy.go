package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/service"
)

// PrivacyHandler serves the LGPD/GDPR endpoints under /api/user.
type PrivacyHandler struct {
	Privacy *service.Privacy
}

type consentItem struct {
	Purpose string `json:"purpose" validate:"required,oneof=ESSENTIAL ANALYTICS MARKETING THIRD_PARTY_SHARING PERSONALIZATION"`
	Granted *bool  `json:"granted" validate:"required"`
}

type consentReq struct {
	Consents []consentItem `json:"consents" validate:"required,min=1,dive"`
}

type dataRequestReq struct {
	Type   string `json:"type" validate:"required,oneof=ACCESS PORTABILITY DELETION RECTIFICATION"`
	Reason string `json:"reason" validate:"max=2000"`
}

// logAccess records the access; a failure never fails the request.
func (h *PrivacyHandler) logAccess(c echo.Context, userID, action, resource string) {
	if err := h.Privacy.LogDataAccess(c.Request().Context(), userID, action, resource, client(c)); err != nil {
		slog.Error("data access log", "action", action, "error", err)
	}
}

func (h *PrivacyHandler) Consents(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID
	consents, err := h.Privacy.CurrentConsents(ctx, uid)
	if err != nil {
		return internalError(c, "get consents", err)
	}
	h.logAccess(c, uid, service.AccessConsentRead, "consents")
	return c.JSON(http.StatusOK, echo.Map{"consents": consents})
}

func (h *PrivacyHandler) UpdateConsents(c echo.Context) error {
	var req consentReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	decisions := make([]service.ConsentDecision, len(req.Consents))
	for i, it := range req.Consents {
		decisions[i] = service.ConsentDecision{Purpose: it.Purpose, Granted: *it.Granted}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID
	rows, err := h.Privacy.RecordConsent(ctx, uid, decisions, client(c))
	if err != nil {
		return internalError(c, "update consents", err)
	}
	h.logAccess(c, uid, service.AccessConsentUpdate, "consents")
	return c.JSON(http.StatusOK, echo.Map{"consents": rows})
}

// Export returns everything stored about the caller as a JSON attachment.
func (h *PrivacyHandler) Export(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID

	exp, err := h.Privacy.ExportUserData(ctx, uid)
	if err != nil {
		return internalError(c, "data export", err)
	}
	body, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return internalError(c, "data export: encode", err)
	}
	h.logAccess(c, uid, service.AccessExport, "all")

	name := fmt.Sprintf("data-export-%s.json", exp.ExportedAt.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, body)
}

func (h *PrivacyHandler) CreateDataRequest(c echo.Context) error {
	var req dataRequestReq
	if ok, err := bindOrBad(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID

	dr, err := h.Privacy.CreateDataRequest(ctx, uid, req.Type, req.Reason)
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "a pending request of this type already exists"})
	}
	if err != nil {
		return internalError(c, "create data request", err)
	}
	h.logAccess(c, uid, service.AccessRequestCreated, req.Type)
	return c.JSON(http.StatusCreated, echo.Map{"request": dr})
}

func (h *PrivacyHandler) DataRequests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid := principal(c).ID
	reqs, err := h.Privacy.Privacy.DataRequests(ctx, uid)
	if err != nil {
		return internalError(c, "list data requests", err)
	}
	h.logAccess(c, uid, service.AccessRequestRead, "data_requests")
	return c.JSON(http.StatusOK, echo.Map{"requests": reqs})
}
