package handler // handler defines http handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/service"
	"github.com/iliyamo/fintrack/internal/utils"
	"github.com/iliyamo/fintrack/internal/validate"
)

// Mailer sends the account emails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, code string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func now() time.Time { return time.Now().UTC() }

// internalError logs err with the request id and answers a generic 500.
func internalError(c echo.Context, msg string, err error) error {
	slog.Error(msg,
		"error", err,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"method", c.Request().Method,
		"path", c.Path(),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// bindOrBad binds and validates into dst.  On failure it has already
// written the 400 response and returns ok=false.
func bindOrBad(c echo.Context, dst any) (ok bool, err error) {
	if err := validate.Bind(c, dst); err != nil {
		if ve, isVE := validate.As(err); isVE {
			return false, c.JSON(http.StatusBadRequest, ve)
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return true, nil
}

// weakPassword writes a 400 when pw breaks the strength rules.
func weakPassword(c echo.Context, field, pw string) (bool, error) {
	problems := utils.CheckPasswordStrength(pw)
	if len(problems) == 0 {
		return false, nil
	}
	return true, c.JSON(http.StatusBadRequest, &validate.Error{
		Message: "password too weak",
		Fields:  map[string]string{field: strings.Join(problems, "; ")},
	})
}

// principal returns the caller set by the auth middleware.
func principal(c echo.Context) *auth.Principal {
	p, _ := auth.FromContext(c)
	return p
}

func client(c echo.Context) service.Client {
	return service.Client{IP: c.RealIP(), UserAgent: truncate(c.Request().UserAgent(), 512)}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

func queryBool(c echo.Context, name string) *bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &v
}

func page(c echo.Context) repository.Page {
	return repository.NewPage(queryInt(c, "page", 1), queryInt(c, "limit", 20))
}

func paged(items any, total int64, p repository.Page) echo.Map {
	return echo.Map{"items": items, "total": total, "page": p.Page, "limit": p.Limit}
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}
