package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/database/dbtest"
	"github.com/iliyamo/fintrack/internal/model"
)

func newUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	hash := "$2a$04$hash"
	u := &model.User{Email: email, Name: "Test", PasswordHash: &hash}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	return u
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	u := newUser(t, db, "  A@B.com ")
	assert.Equal(t, "a@b.com", u.Email)
	assert.Len(t, u.ID, 36)

	err := users.Create(ctx, &model.User{Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrEmailExists)

	n, err := users.Count(ctx, false, time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := users.GetByEmail(ctx, "A@b.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserListSearch(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	newUser(t, db, "alice@x.io")
	newUser(t, db, "bob@x.io")
	newUser(t, db, "carol@y.io")

	users, total, err := NewUserRepo(db).List(ctx, "x.io", NewPage(1, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 1)
}

func TestVerificationCodeLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	tokens := NewTokenRepo(db)
	now := time.Now().UTC()

	require.NoError(t, tokens.ReplaceVerificationCode(ctx, "a@b.com", "111111", now.Add(10*time.Minute)))
	require.NoError(t, tokens.ReplaceVerificationCode(ctx, "a@b.com", "222222", now.Add(10*time.Minute)))

	// the first code was replaced
	assert.ErrorIs(t, tokens.ConsumeVerificationCode(ctx, "a@b.com", "111111", now), ErrTokenInvalid)
	require.NoError(t, tokens.ConsumeVerificationCode(ctx, "a@b.com", "222222", now))
	// codes work once
	assert.ErrorIs(t, tokens.ConsumeVerificationCode(ctx, "a@b.com", "222222", now), ErrTokenInvalid)

	require.NoError(t, tokens.ReplaceVerificationCode(ctx, "a@b.com", "333333", now.Add(10*time.Minute)))
	later := now.Add(11 * time.Minute)
	assert.ErrorIs(t, tokens.ConsumeVerificationCode(ctx, "a@b.com", "333333", later), ErrTokenExpired)

	var left int64
	require.NoError(t, db.Model(&model.VerificationToken{}).Count(&left).Error)
	assert.Zero(t, left, "expired code is deleted")
}

func TestResetTokenSingleUse(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	tokens := NewTokenRepo(db)
	now := time.Now().UTC()

	require.NoError(t, tokens.CreateResetToken(ctx, "a@b.com", "hash-1", now.Add(time.Hour)))
	require.NoError(t, tokens.CreateResetToken(ctx, "a@b.com", "hash-2", now.Add(time.Hour)))

	// the older token was superseded
	_, err := tokens.ClaimResetToken(ctx, "hash-1", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tok, err := tokens.ClaimResetToken(ctx, "hash-2", now)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", tok.Email)

	_, err = tokens.ClaimResetToken(ctx, "hash-2", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	require.NoError(t, tokens.CreateResetToken(ctx, "a@b.com", "hash-3", now.Add(time.Hour)))
	_, err = tokens.ClaimResetToken(ctx, "hash-3", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTokenExpired)

	n, err := tokens.InvalidateResetTokens(ctx, "a@b.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAdminCreateFirst(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	admins := NewAdminRepo(db)

	first := &model.Admin{Email: "Root@x.io", Name: "Root", PasswordHash: "h", Role: model.RoleAdmin}
	require.NoError(t, admins.CreateFirst(ctx, first, model.AdminLog{IPAddress: "1.1.1.1"}))
	assert.Equal(t, model.RoleSuperAdmin, first.Role)
	assert.Equal(t, "root@x.io", first.Email)

	err := admins.CreateFirst(ctx, &model.Admin{Email: "two@x.io", Name: "Two", PasswordHash: "h"}, model.AdminLog{})
	assert.ErrorIs(t, err, ErrForbidden)

	n, _ := admins.Count(ctx)
	assert.EqualValues(t, 1, n)

	logs, total, err := NewAdminLogRepo(db).List(ctx, AdminLogFilter{Action: model.ActionAdminCreated}, NewPage(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, first.ID, logs[0].AdminID)
}

func TestAdminCreateFirstConcurrent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	admins := NewAdminRepo(db)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := &model.Admin{Email: fmt.Sprintf("root%d@x.io", i), Name: "Root", PasswordHash: "h"}
			errs[i] = admins.CreateFirst(ctx, a, model.AdminLog{})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrForbidden)
	}
	assert.Equal(t, 1, ok)
	n, err := admins.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var guard model.AdminSetup
	require.NoError(t, db.First(&guard, model.AdminSetupID).Error)
	var root model.Admin
	require.NoError(t, db.First(&root).Error)
	assert.Equal(t, root.ID, guard.AdminID)
}

func TestAdminCreateFirstGuardTaken(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	admins := NewAdminRepo(db)

	// a setup that won the guard row but has not committed its admin yet
	require.NoError(t, db.Create(&model.AdminSetup{ID: model.AdminSetupID, AdminID: "other"}).Error)

	err := admins.CreateFirst(ctx, &model.Admin{Email: "late@x.io", Name: "Late", PasswordHash: "h"}, model.AdminLog{})
	assert.ErrorIs(t, err, ErrForbidden)
	n, _ := admins.Count(ctx)
	assert.Zero(t, n)
}

func TestAdminSetStatus(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	admins := NewAdminRepo(db)
	a := &model.Admin{Email: "a@x.io", Name: "A", PasswordHash: "h", Role: model.RoleSuperAdmin}
	b := &model.Admin{Email: "b@x.io", Name: "B", PasswordHash: "h", Role: model.RoleAdmin}
	require.NoError(t, admins.Create(ctx, a))
	require.NoError(t, admins.Create(ctx, b))
	assert.ErrorIs(t, admins.Create(ctx, &model.Admin{Email: "B@x.io", Name: "B2", PasswordHash: "h"}), ErrEmailExists)

	_, err := admins.SetStatus(ctx, a.ID, a.ID, model.AdminSuspended)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := admins.SetStatus(ctx, a.ID, b.ID, model.AdminSuspended)
	require.NoError(t, err)
	assert.False(t, got.Active())
}

func TestSessionRevocation(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	sessions := NewSessionRepo(db)
	now := time.Now().UTC()
	alice := newUser(t, db, "alice@x.io")
	bob := newUser(t, db, "bob@x.io")

	mk := func(userID, token string) *model.Session {
		s := &model.Session{UserID: userID, Token: token, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, sessions.Create(ctx, s))
		return s
	}
	current := mk(alice.ID, "t1")
	mk(alice.ID, "t2")
	mk(alice.ID, "t3")
	bobs := mk(bob.ID, "t4")

	// another user's session is not found
	assert.ErrorIs(t, sessions.Revoke(ctx, alice.ID, bobs.ID, now), ErrNotFound)

	revoked, err := sessions.RevokeAllExcept(ctx, alice.ID, current.ID, now)
	require.NoError(t, err)
	assert.Len(t, revoked, 2)

	active, err := sessions.ListActive(ctx, alice.ID, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, current.ID, active[0].ID)

	_, err = sessions.GetLiveByToken(ctx, "t2", now)
	assert.ErrorIs(t, err, ErrNotFound)
	live, err := sessions.GetLiveByToken(ctx, "t4", now)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, live.UserID)

	n, err := sessions.CountActive(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestBudgetDuplicateAndOwnership(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	budgets := NewBudgetRepo(db)
	alice := newUser(t, db, "alice@x.io")
	bob := newUser(t, db, "bob@x.io")

	b := &model.Budget{UserID: alice.ID, Category: "Food", Amount: 500, Month: 3, Year: 2025, AlertThreshold: 80}
	require.NoError(t, budgets.Create(ctx, b))
	dup := &model.Budget{UserID: alice.ID, Category: "Food", Amount: 100, Month: 3, Year: 2025}
	assert.ErrorIs(t, budgets.Create(ctx, dup), ErrDuplicate)

	list, err := budgets.List(ctx, alice.ID, 3, 2025)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// the same period for another user is fine
	require.NoError(t, budgets.Create(ctx, &model.Budget{UserID: bob.ID, Category: "Food", Amount: 1, Month: 3, Year: 2025}))

	_, err = budgets.Get(ctx, bob.ID, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, budgets.Delete(ctx, bob.ID, b.ID), ErrNotFound)

	other := &model.Budget{UserID: alice.ID, Category: "Rent", Amount: 900, Month: 3, Year: 2025}
	require.NoError(t, budgets.Create(ctx, other))
	other.Category = "Food"
	assert.ErrorIs(t, budgets.Save(ctx, other), ErrDuplicate)

	b.Spent = 450
	require.NoError(t, budgets.Save(ctx, b))
	got, err := budgets.Get(ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.InDelta(t, 450, got.Spent, 0.001)

	require.NoError(t, budgets.Delete(ctx, alice.ID, b.ID))
}

func TestNotifications(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewNotificationRepo(db)
	alice := newUser(t, db, "alice@x.io")
	bob := newUser(t, db, "bob@x.io")

	n1 := &model.Notification{UserID: alice.ID, Type: model.NotificationInfo, Title: "one"}
	n2 := &model.Notification{UserID: alice.ID, Type: model.NotificationInfo, Title: "two"}
	require.NoError(t, repo.Create(ctx, n1))
	require.NoError(t, repo.Create(ctx, n2))

	_, err := repo.MarkRead(ctx, bob.ID, n1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := repo.MarkRead(ctx, alice.ID, n1.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	unread, err := repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	list, err := repo.List(ctx, alice.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n2.ID, list[0].ID)

	changed, err := repo.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	assert.ErrorIs(t, repo.Delete(ctx, bob.ID, n2.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, alice.ID, n2.ID))
}

func TestCustomReportFavorite(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewReportRepo(db)
	alice := newUser(t, db, "alice@x.io")
	bob := newUser(t, db, "bob@x.io")

	cr := &model.CustomReport{UserID: alice.ID, Name: "Monthly", Type: "budget", Filters: map[string]any{"year": 2025}}
	require.NoError(t, repo.CreateCustom(ctx, cr))

	got, err := repo.SetFavorite(ctx, alice.ID, cr.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	got, err = repo.SetFavorite(ctx, alice.ID, cr.ID, nil)
	require.NoError(t, err)
	assert.False(t, got.IsFavorite)
	yes := true
	got, err = repo.SetFavorite(ctx, alice.ID, cr.ID, &yes)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)

	_, err = repo.SetFavorite(ctx, bob.ID, cr.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCustom(ctx, bob.ID, cr.ID), ErrNotFound)

	list, err := repo.ListCustom(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2025, list[0].Filters["year"])
}

func TestPrivacyRequestsAndConsents(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewPrivacyRepo(db)
	alice := newUser(t, db, "alice@x.io")
	t0 := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, repo.AppendConsents(ctx, []model.UserConsent{
		{UserID: alice.ID, Purpose: "ANALYTICS", Granted: true, CreatedAt: t0},
		{UserID: alice.ID, Purpose: "MARKETING", Granted: true, CreatedAt: t0},
	}))
	require.NoError(t, repo.AppendConsents(ctx, []model.UserConsent{
		{UserID: alice.ID, Purpose: "ANALYTICS", Granted: false, CreatedAt: t0.Add(time.Second)},
	}))
	latest, err := repo.LatestConsents(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, latest["ANALYTICS"].Granted)
	assert.True(t, latest["MARKETING"].Granted)
	hist, _ := repo.ConsentHistory(ctx, alice.ID)
	assert.Len(t, hist, 3)

	dr := &model.DataRequest{UserID: alice.ID, Type: "DELETION"}
	require.NoError(t, repo.CreateDataRequest(ctx, dr))
	assert.Equal(t, model.RequestPending, dr.Status)
	assert.ErrorIs(t, repo.CreateDataRequest(ctx, &model.DataRequest{UserID: alice.ID, Type: "DELETION"}), ErrConflict)
	require.NoError(t, repo.CreateDataRequest(ctx, &model.DataRequest{UserID: alice.ID, Type: "ACCESS"}))

	pending, err := repo.CountPendingDataRequests(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pending)

	done, err := repo.UpdateDataRequestStatus(ctx, dr.ID, model.RequestCompleted, time.Now().UTC())
	require.NoError(t, err)
	assert.NotNil(t, done.CompletedAt)
	_, err = repo.UpdateDataRequestStatus(ctx, dr.ID, model.RequestInProgress, time.Now().UTC())
	assert.ErrorIs(t, err, ErrConflict)

	// a new DELETION request is allowed once the previous one finished
	require.NoError(t, repo.CreateDataRequest(ctx, &model.DataRequest{UserID: alice.ID, Type: "DELETION"}))
}

func TestCreateDataRequestConcurrent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewPrivacyRepo(db)
	alice := newUser(t, db, "alice@x.io")

	const callers = 6
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateDataRequest(ctx, &model.DataRequest{UserID: alice.ID, Type: "PORTABILITY"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, ok)
	var n int64
	require.NoError(t, db.Model(&model.DataRequest{}).Where("user_id = ?", alice.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	err := repo.CreateDataRequest(ctx, &model.DataRequest{UserID: "missing", Type: "ACCESS"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecurityEventResolve(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewSecurityEventRepo(db)
	e := &model.SecurityEvent{Type: model.SecurityFailedLogin, Description: "bad password"}
	require.NoError(t, repo.Record(ctx, e))
	assert.Equal(t, model.SeverityLow, e.Severity)

	unresolved, _ := repo.CountUnresolved(ctx)
	assert.EqualValues(t, 1, unresolved)

	got, err := repo.Resolve(ctx, e.ID, "admin-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	_, err = repo.Resolve(ctx, e.ID, "admin-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrConflict)
	_, err = repo.Resolve(ctx, "missing", "admin-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)

	no := false
	list, total, err := repo.List(ctx, SecurityEventFilter{Resolved: &no}, NewPage(1, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestLinkOAuth(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	users := NewUserRepo(db)
	now := time.Now().UTC()

	existing := newUser(t, db, "alice@x.io")
	linked, err := users.LinkOAuth(ctx, "google", "g-1", "Alice@x.io", "Alice", "", now)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.True(t, linked.Verified())

	again, err := users.LinkOAuth(ctx, "google", "g-1", "alice@x.io", "Alice", "", now)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)

	fresh, err := users.LinkOAuth(ctx, "google", "g-2", "new@x.io", "New", "http://img", now)
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, fresh.ID)
	assert.False(t, fresh.HasPassword())

	byAcc, err := users.FindByAccount(ctx, "google", "g-2")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, byAcc.ID)
}
