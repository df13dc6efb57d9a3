package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/metrics"
	"github.com/iliyamo/fintrack/internal/utils"
)

const (
	oauthProvider    = "google"
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// OAuthHandler runs the authorization-code flow against Google and then
// opens a regular session through the AuthHandler.
type OAuthHandler struct {
	Auth        *AuthHandler
	OAuth       *oauth2.Config
	UserInfoURL string
}

// NewOAuthHandler builds the handler from the provider credentials.
func NewOAuthHandler(a *AuthHandler, cfg config.OAuthConfig) *OAuthHandler {
	return &OAuthHandler{
		Auth: a,
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Start redirects to the consent screen with a fresh state cookie.
func (h *OAuthHandler) Start(c echo.Context) error {
	state, err := utils.RandomToken(16)
	if err != nil {
		return internalError(c, "oauth: state", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Auth.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.OAuth.AuthCodeURL(state))
}

// Callback exchanges the code, links the Google identity and signs in.
func (h *OAuthHandler) Callback(c echo.Context) error {
	ck, err := c.Cookie(oauthStateCookie)
	if err != nil || ck.Value == "" || ck.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid oauth state"})
	}
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	if e := c.QueryParam("error"); e != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "oauth denied: " + e})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("oauth", "error").Inc()
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "oauth exchange failed"})
	}
	gu, err := h.fetchUser(ctx, tok)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("oauth", "error").Inc()
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "oauth userinfo failed"})
	}
	if gu.Sub == "" || gu.Email == "" || !gu.EmailVerified {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "google account email is not verified"})
	}

	u, err := h.Auth.Users.LinkOAuth(ctx, oauthProvider, gu.Sub, gu.Email, gu.Name, gu.Picture, now())
	if err != nil {
		return internalError(c, "oauth: link account", err)
	}
	if err := h.Auth.startSession(ctx, c, u); err != nil {
		return internalError(c, "oauth: start session", err)
	}
	metrics.LoginsTotal.WithLabelValues("oauth", "success").Inc()
	return c.Redirect(http.StatusFound, h.Auth.Cfg.BaseURL+"/dashboard")
}

func (h *OAuthHandler) fetchUser(ctx context.Context, tok *oauth2.Token) (*googleUser, error) {
	resp, err := h.OAuth.Client(ctx, tok).Get(h.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, err
	}
	return &gu, nil
}
