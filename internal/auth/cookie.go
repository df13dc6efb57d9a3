package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieConfig describes one auth cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// Set writes value with an absolute expiry.
func (cc CookieConfig) Set(c echo.Context, value string, expires time.Time) {
	c.SetCookie(cc.cookie(value, expires, int(time.Until(expires).Seconds())))
}

// Clear expires the cookie on the client.
func (cc CookieConfig) Clear(c echo.Context) {
	c.SetCookie(cc.cookie("", time.Unix(0, 0), -1))
}

// Read returns the cookie value or "" when absent.
func (cc CookieConfig) Read(c echo.Context) string {
	ck, err := c.Cookie(cc.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (cc CookieConfig) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	path := cc.Path
	if path == "" {
		path = "/"
	}
	same := cc.SameSite
	if same == 0 {
		same = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     cc.Name,
		Value:    value,
		Path:     path,
		Domain:   cc.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   cc.Secure,
		HttpOnly: true,
		SameSite: same,
	}
}
