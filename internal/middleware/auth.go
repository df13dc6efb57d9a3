package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/model"
)

// SessionLookup resolves the opaque session token carried in a user cookie.
type SessionLookup interface {
	GetLiveByToken(ctx context.Context, token string, now time.Time) (*model.Session, error)
}

// AdminLookup re-reads the admin row behind an admin cookie.
type AdminLookup interface {
	GetByID(ctx context.Context, id string) (*model.Admin, error)
}

// RequireUser authenticates the end-user session cookie.  The cookie must
// carry a valid user token and its session row must still be live; the
// principal's SessionID is replaced by the row id so handlers can flag the
// current session.
func RequireUser(iss *auth.Issuer, cookie auth.CookieConfig, sessions SessionLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := cookie.Read(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			p, err := iss.Parse(raw, auth.KindUser)
			if err != nil || p.SessionID == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			s, err := sessions.GetLiveByToken(c.Request().Context(), p.SessionID, time.Now().UTC())
			if err != nil || s.UserID != p.ID {
				cookie.Clear(c)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
			}
			p.SessionID = s.ID
			auth.WithPrincipal(c, p)
			return next(c)
		}
	}
}

// RequireAdmin authenticates the admin cookie and re-checks the admin row:
// a missing admin, a non-ACTIVE status or a role changed since the token
// was issued all clear the cookie and answer 401.
func RequireAdmin(iss *auth.Issuer, cookie auth.CookieConfig, admins AdminLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := VerifyAdmin(c, iss, cookie, admins)
			if err != nil {
				cookie.Clear(c)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			auth.WithPrincipal(c, p)
			return next(c)
		}
	}
}

// VerifyAdmin performs the RequireAdmin checks without writing a response.
func VerifyAdmin(c echo.Context, iss *auth.Issuer, cookie auth.CookieConfig, admins AdminLookup) (auth.Principal, error) {
	raw := cookie.Read(c)
	if raw == "" {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	p, err := iss.Parse(raw, auth.KindAdmin)
	if err != nil {
		return auth.Principal{}, err
	}
	a, err := admins.GetByID(c.Request().Context(), p.ID)
	if err != nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	if !a.Active() || a.Role != p.Role {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return auth.AdminPrincipal(a), nil
}
