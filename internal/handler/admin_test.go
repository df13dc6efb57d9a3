package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
	"github.com/iliyamo/fintrack/internal/utils"
)

func (te *testEnv) seedAdmin(email, role string) *model.Admin {
	te.t.Helper()
	hash, err := utils.HashPassword(strongPassword, bcrypt.MinCost)
	require.NoError(te.t, err)
	a := &model.Admin{Email: email, Name: "Admin", PasswordHash: hash, Role: role}
	require.NoError(te.t, repository.NewAdminRepo(te.db).Create(context.Background(), a))
	return a
}

func (te *testEnv) adminLogin(email string) *http.Cookie {
	te.t.Helper()
	rec := te.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": email, "password": strongPassword})
	require.Equal(te.t, http.StatusOK, rec.Code, rec.Body.String())
	c := cookieNamed(rec, te.cfg.Cookies.AdminName)
	require.NotNil(te.t, c)
	return c
}

func TestAdminSetup(t *testing.T) {
	te := newTestEnv(t)

	rec := te.do(http.MethodGet, "/api/admin/auth/setup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["needsSetup"])

	body := map[string]string{"email": "Root@Example.com", "password": strongPassword, "name": "Root"}
	rec = te.do(http.MethodPost, "/api/admin/auth/setup", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	admin := decode(t, rec)["admin"].(map[string]any)
	assert.Equal(t, model.RoleSuperAdmin, admin["role"])
	assert.Equal(t, "root@example.com", admin["email"])

	cookie := cookieNamed(rec, te.cfg.Cookies.AdminName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.EqualValues(t, 1, te.count(&model.AdminLog{}, "action = ?", model.ActionAdminCreated))

	rec = te.do(http.MethodPost, "/api/admin/auth/setup", map[string]string{"email": "x@example.com", "password": strongPassword, "name": "X"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.EqualValues(t, 1, te.count(&model.Admin{}, ""))

	rec = te.do(http.MethodGet, "/api/admin/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root@example.com", decode(t, rec)["admin"].(map[string]any)["email"])
}

func TestAdminLoginRateLimit(t *testing.T) {
	te := newTestEnv(t)
	te.seedAdmin("ops@example.com", model.RoleAdmin)

	bad := map[string]string{"email": "ops@example.com", "password": "Wrong-pass1"}
	for i := 0; i < 5; i++ {
		rec := te.do(http.MethodPost, "/api/admin/auth/login", bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	before := time.Now().Add(-time.Second)
	rec := te.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "ops@example.com", "password": strongPassword})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	reset, err := time.Parse(time.RFC3339, decode(t, rec)["resetTime"].(string))
	require.NoError(t, err)
	assert.True(t, reset.After(before))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.EqualValues(t, 5, te.count(&model.SecurityEvent{}, "type = ?", model.SecurityAdminLoginFailed))
	assert.EqualValues(t, 1, te.count(&model.SecurityEvent{}, "type = ?", model.SecurityRateLimited))
}

func TestAdminLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	te := newTestEnv(t)
	te.seedAdmin("ops@example.com", model.RoleAdmin)

	bad := map[string]string{"email": "ops@example.com", "password": "Wrong-pass1"}
	codes := map[int]int{}
	for i := 0; i < 20; i++ {
		hdr := http.Header{}
		hdr.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		hdr.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rec := te.doWith(http.MethodPost, "/api/admin/auth/login", bad, hdr)
		codes[rec.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusUnauthorized: 5, http.StatusTooManyRequests: 15}, codes)
	assert.EqualValues(t, 5, te.count(&model.SecurityEvent{}, "type = ?", model.SecurityAdminLoginFailed))
}

func TestAdminLoginSuspendedAndLogout(t *testing.T) {
	te := newTestEnv(t)
	a := te.seedAdmin("ops@example.com", model.RoleAdmin)

	rec := te.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "nobody@example.com", "password": strongPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := te.adminLogin("OPS@example.com")
	var got model.Admin
	require.NoError(t, te.db.Where("id = ?", a.ID).First(&got).Error)
	assert.NotNil(t, got.LastLoginAt)

	rec = te.do(http.MethodGet, "/api/admin/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, te.count(&model.AdminLog{}, "action = ?", model.ActionLogout))

	require.NoError(t, te.db.Model(&model.Admin{}).Where("id = ?", a.ID).Update("status", model.AdminSuspended).Error)
	rec = te.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"email": "ops@example.com", "password": strongPassword})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = te.do(http.MethodGet, "/api/admin/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "suspended admin token no longer valid")
}

func TestAdminCapabilities(t *testing.T) {
	te := newTestEnv(t)
	root := te.seedAdmin("root@example.com", model.RoleSuperAdmin)
	te.seedAdmin("ops@example.com", model.RoleAdmin)
	rootCookie := te.adminLogin("root@example.com")
	opsCookie := te.adminLogin("ops@example.com")

	rec := te.do(http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a user session is not an admin session
	te.seedUser("u@example.com")
	rec = te.do(http.MethodGet, "/api/admin/stats", nil, te.login("u@example.com"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = te.do(http.MethodGet, "/api/admin/stats", nil, opsCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["totalUsers"])

	newAdmin := map[string]string{"email": "new@example.com", "name": "New", "password": strongPassword}
	rec = te.do(http.MethodPost, "/api/admin/admins", newAdmin, opsCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = te.do(http.MethodPost, "/api/admin/admins", newAdmin, rootCookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["admin"].(map[string]any)
	assert.Equal(t, model.RoleAdmin, created["role"])

	rec = te.do(http.MethodPost, "/api/admin/admins", newAdmin, rootCookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = te.do(http.MethodPatch, "/api/admin/admins/"+root.ID+"/status", map[string]string{"status": model.AdminSuspended}, rootCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code, "cannot suspend self")

	rec = te.do(http.MethodPatch, "/api/admin/admins/"+created["id"].(string)+"/status", map[string]string{"status": "BANNED"}, rootCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = te.do(http.MethodPatch, "/api/admin/admins/"+created["id"].(string)+"/status", map[string]string{"status": model.AdminSuspended}, rootCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = te.do(http.MethodGet, "/api/admin/logs?action="+model.ActionAdminStatusChanged, nil, rootCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestAdminUserManagement(t *testing.T) {
	te := newTestEnv(t)
	te.seedAdmin("ops@example.com", model.RoleAdmin)
	cookie := te.adminLogin("ops@example.com")
	u := te.seedUser("ana@example.com")
	te.seedUser("bob@example.com")

	rec := te.do(http.MethodGet, "/api/admin/users?search=ana", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = te.do(http.MethodGet, "/api/admin/users/"+u.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, te.count(&model.AdminLog{}, "action = ? AND target = ?", model.ActionUserViewed, u.ID))

	rec = te.do(http.MethodGet, "/api/admin/users/missing", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = te.do(http.MethodPost, "/api/admin/users/"+u.ID+"/password-reset", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	raw := te.mail.reset("ana@example.com")
	require.NotEmpty(t, raw)
	assert.EqualValues(t, 1, te.count(&model.PasswordResetToken{}, "token_hash = ?", utils.HashToken(raw)))
	assert.EqualValues(t, 1, te.count(&model.AdminLog{}, "action = ?", model.ActionPasswordResetRequested))

	rec = te.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": raw, "password": "N3wPassword"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSecurityAndDataRequests(t *testing.T) {
	te := newTestEnv(t)
	te.seedAdmin("ops@example.com", model.RoleAdmin)
	cookie := te.adminLogin("ops@example.com")
	u := te.seedUser("ana@example.com")
	ctx := context.Background()

	ev := &model.SecurityEvent{UserID: &u.ID, Type: model.SecurityFailedLogin, Severity: model.SeverityHigh}
	require.NoError(t, repository.NewSecurityEventRepo(te.db).Record(ctx, ev))

	rec := te.do(http.MethodGet, "/api/admin/security-events?severity=HIGH&resolved=false", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = te.do(http.MethodPatch, "/api/admin/security-events/"+ev.ID+"/resolve", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = te.do(http.MethodPatch, "/api/admin/security-events/"+ev.ID+"/resolve", nil, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	dr := &model.DataRequest{UserID: u.ID, Type: "DELETION"}
	require.NoError(t, repository.NewPrivacyRepo(te.db).CreateDataRequest(ctx, dr))

	rec = te.do(http.MethodGet, "/api/admin/data-requests?status=PENDING", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = te.do(http.MethodPatch, "/api/admin/data-requests/"+dr.ID, map[string]string{"status": model.RequestCompleted}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode(t, rec)["request"].(map[string]any)["completedAt"])

	rec = te.do(http.MethodPatch, "/api/admin/data-requests/"+dr.ID, map[string]string{"status": model.RequestRejected}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.EqualValues(t, 1, te.count(&model.AdminLog{}, "action = ?", model.ActionSecurityEventResolved))
	assert.EqualValues(t, 1, te.count(&model.AdminLog{}, "action = ?", model.ActionDataRequestUpdated))

	te.login("ana@example.com")
	rec = te.do(http.MethodGet, "/api/admin/session-logs?userId="+u.ID+"&event=LOGIN", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}
