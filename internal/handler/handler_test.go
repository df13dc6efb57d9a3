package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/auth"
	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/database/dbtest"
	"github.com/iliyamo/fintrack/internal/handler"
	"github.com/iliyamo/fintrack/internal/middleware"
	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/ratelimit"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/router"
	"github.com/iliyamo/fintrack/internal/service"
	"github.com/iliyamo/fintrack/internal/storage"
	"github.com/iliyamo/fintrack/internal/utils"
	"github.com/iliyamo/fintrack/internal/validate"
)

const strongPassword = "Sup3rSecret"

type fakeMailer struct {
	mu       sync.Mutex
	codes    map[string]string
	resets   map[string]string
	resetErr error
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[email] = code
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets[email] = token
	return nil
}

func (f *fakeMailer) code(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email]
}

func (f *fakeMailer) reset(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[email]
}

// testEnv is a fully wired echo instance over an in-memory database.
type testEnv struct {
	t      *testing.T
	e      *echo.Echo
	db     *gorm.DB
	cfg    config.Config
	mail   *fakeMailer
	authH  *handler.AuthHandler
	oauthH *handler.OAuthHandler
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets a test adjust the OAuth handler before the routes
// are registered.
func newTestEnvWith(t *testing.T, tweakOAuth func(*handler.OAuthHandler)) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	cfg := config.Config{
		Env:        "test",
		BaseURL:    "http://app.test",
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		AdminTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		Cookies:    config.CookieConfig{SessionName: "session-token", AdminName: "admin-token", Secure: true},
	}
	files, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)
	mail := &fakeMailer{codes: map[string]string{}, resets: map[string]string{}}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	admins := repository.NewAdminRepo(db)
	adminLogs := repository.NewAdminLogRepo(db)
	sessions := repository.NewSessionRepo(db)
	sessionLogs := repository.NewSessionLogRepo(db)
	security := repository.NewSecurityEventRepo(db)
	budgets := repository.NewBudgetRepo(db)
	notifications := repository.NewNotificationRepo(db)
	reports := repository.NewReportRepo(db)
	privacyRepo := repository.NewPrivacyRepo(db)

	issuer := auth.NewIssuer(cfg.JWTSecret)
	authH := &handler.AuthHandler{
		Cfg: cfg, Users: users, Tokens: tokens, Sessions: sessions, SessionLogs: sessionLogs,
		Security: security, Mailer: mail, Issuer: issuer,
		Cookie: auth.CookieConfig{Name: cfg.Cookies.SessionName, Secure: true},
	}
	oauthH := handler.NewOAuthHandler(authH, config.OAuthConfig{
		ClientID: "client", ClientSecret: "secret", RedirectURL: "http://api.test/api/auth/oauth/google/callback",
	})
	if tweakOAuth != nil {
		tweakOAuth(oauthH)
	}
	adminAuthH := &handler.AdminAuthHandler{
		Cfg: cfg, Admins: admins, Logs: adminLogs, Security: security,
		Limiter: ratelimit.NewMemory(5, 15*time.Minute), Issuer: issuer,
		Cookie: auth.CookieConfig{Name: cfg.Cookies.AdminName, Secure: true, SameSite: http.SameSiteStrictMode},
	}
	adminH := &handler.AdminHandler{
		Cfg: cfg, Users: users, Tokens: tokens, Admins: admins, Logs: adminLogs,
		Sessions: sessions, SessionLogs: sessionLogs, Security: security,
		Budgets: budgets, Privacy: privacyRepo, Mailer: mail,
	}

	e := echo.New()
	e.Validator = validate.New()
	e.IPExtractor = middleware.IPExtractor(cfg.TrustedProxies)
	router.RegisterRoutes(e, mustSQL(t, db))
	router.RegisterAuth(e, authH, oauthH, ratelimit.NewMemory(100, time.Minute))
	router.RegisterAdminAuth(e, adminAuthH)
	router.RegisterAdmin(e, adminH, adminAuthH, nil)
	router.RegisterUser(e, router.UserHandlers{
		Auth:          authH,
		Budgets:       &handler.BudgetHandler{Budgets: budgets, Notifications: notifications},
		Notifications: &handler.NotificationHandler{Notifications: notifications},
		Reports:       &handler.ReportHandler{Reports: reports, Budgets: budgets, Files: files},
		User: &handler.UserHandler{
			Cfg: cfg, Users: users, Sessions: sessions, SessionLogs: sessionLogs,
			Security: security, Files: files,
		},
		Privacy: &handler.PrivacyHandler{
			Privacy: service.NewPrivacy(users, privacyRepo, budgets, notifications, reports, sessionLogs),
		},
	})

	return &testEnv{t: t, e: e, db: db, cfg: cfg, mail: mail, authH: authH, oauthH: oauthH}
}

type sqlPinger struct{ db *gorm.DB }

func (p sqlPinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func mustSQL(_ *testing.T, db *gorm.DB) handler.Pinger { return sqlPinger{db: db} }

// do sends a JSON request (body may be nil) with the given cookies.
func (te *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	te.t.Helper()
	return te.doWith(method, path, body, nil, cookies...)
}

// doWith is do with extra request headers.
func (te *testEnv) doWith(method, path string, body any, hdr http.Header, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	te.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(te.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	te.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// seedUser inserts a verified user with a password.
func (te *testEnv) seedUser(email string) *model.User {
	te.t.Helper()
	hash, err := utils.HashPassword(strongPassword, bcrypt.MinCost)
	require.NoError(te.t, err)
	at := time.Now().UTC()
	u := &model.User{Email: email, Name: "Tester", PasswordHash: &hash, EmailVerifiedAt: &at}
	require.NoError(te.t, repository.NewUserRepo(te.db).Create(context.Background(), u))
	return u
}

// login signs email in and returns the session cookie.
func (te *testEnv) login(email string) *http.Cookie {
	te.t.Helper()
	rec := te.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": strongPassword})
	require.Equal(te.t, http.StatusOK, rec.Code, rec.Body.String())
	c := cookieNamed(rec, te.cfg.Cookies.SessionName)
	require.NotNil(te.t, c)
	return c
}

func (te *testEnv) count(m any, where string, args ...any) int64 {
	te.t.Helper()
	var n int64
	q := te.db.Model(m)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(te.t, q.Count(&n).Error)
	return n
}

func TestHealth(t *testing.T) {
	te := newTestEnv(t)
	rec := te.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}
