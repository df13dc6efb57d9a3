// Package service holds the LGPD/GDPR data-subject collaborators shared by
// the user-facing privacy endpoints and the admin back-office.
package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fintrack/internal/model"
	"github.com/iliyamo/fintrack/internal/repository"
)

// Data access actions written to data_access_logs.
const (
	AccessConsentRead    = "CONSENT_READ"
	AccessConsentUpdate  = "CONSENT_UPDATE"
	AccessExport         = "EXPORT"
	AccessRequestCreated = "DATA_REQUEST"
	AccessRequestRead    = "DATA_REQUEST_READ"
)

// Client identifies where a data-subject action came from.
type Client struct {
	IP        string
	UserAgent string
}

// ConsentDecision is one purpose decision of a consent update.
type ConsentDecision struct {
	Purpose string
	Granted bool
}

// Export is the portable copy of everything stored about a user.
type Export struct {
	ExportedAt    time.Time             `json:"exportedAt"`
	Profile       *model.User           `json:"profile"`
	Budgets       []model.Budget        `json:"budgets"`
	Notifications []model.Notification  `json:"notifications"`
	CustomReports []model.CustomReport  `json:"customReports"`
	Reports       []model.Report        `json:"reports"`
	Consents      []model.UserConsent   `json:"consents"`
	SessionLogs   []model.SessionLog    `json:"sessionLogs"`
	DataRequests  []model.DataRequest   `json:"dataRequests"`
	AccessLogs    []model.DataAccessLog `json:"accessLogs"`
}

type Privacy struct {
	Users         *repository.UserRepo
	Privacy       *repository.PrivacyRepo
	Budgets       *repository.BudgetRepo
	Notifications *repository.NotificationRepo
	Reports       *repository.ReportRepo
	SessionLogs   *repository.SessionLogRepo
	Now           func() time.Time
}

func NewPrivacy(u *repository.UserRepo, p *repository.PrivacyRepo, b *repository.BudgetRepo,
	n *repository.NotificationRepo, r *repository.ReportRepo, sl *repository.SessionLogRepo) *Privacy {
	return &Privacy{Users: u, Privacy: p, Budgets: b, Notifications: n, Reports: r, SessionLogs: sl,
		Now: func() time.Time { return time.Now().UTC() }}
}

// RecordConsent appends one row per decision.  Purposes must already be
// validated against model.ConsentPurposes.
func (s *Privacy) RecordConsent(ctx context.Context, userID string, decisions []ConsentDecision, cl Client) ([]model.UserConsent, error) {
	now := s.Now()
	rows := make([]model.UserConsent, len(decisions))
	for i, d := range decisions {
		rows[i] = model.UserConsent{
			UserID:    userID,
			Purpose:   d.Purpose,
			Granted:   d.Granted,
			IPAddress: cl.IP,
			UserAgent: cl.UserAgent,
			CreatedAt: now,
		}
	}
	if err := s.Privacy.AppendConsents(ctx, rows); err != nil {
		return nil, fmt.Errorf("record consent: %w", err)
	}
	return rows, nil
}

// CurrentConsents returns the effective decision for every known purpose;
// purposes never decided are reported as not granted.
func (s *Privacy) CurrentConsents(ctx context.Context, userID string) ([]model.UserConsent, error) {
	latest, err := s.Privacy.LatestConsents(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserConsent, 0, len(model.ConsentPurposes))
	for _, p := range model.ConsentPurposes {
		c, ok := latest[p]
		if !ok {
			c = model.UserConsent{UserID: userID, Purpose: p}
		}
		out = append(out, c)
	}
	return out, nil
}

// LogDataAccess records that the user touched their own data.
func (s *Privacy) LogDataAccess(ctx context.Context, userID, action, resource string, cl Client) error {
	return s.Privacy.LogAccess(ctx, &model.DataAccessLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IPAddress: cl.IP,
		UserAgent: cl.UserAgent,
	})
}

// ExportUserData reads every table holding user data in parallel.
func (s *Privacy) ExportUserData(ctx context.Context, userID string) (*Export, error) {
	out := &Export{ExportedAt: s.Now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Profile, err = s.Users.GetByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.Budgets, err = s.Budgets.List(gctx, userID, 0, 0)
		return err
	})
	g.Go(func() (err error) {
		out.Notifications, err = s.Notifications.List(gctx, userID, false, 0)
		return err
	})
	g.Go(func() (err error) {
		out.CustomReports, err = s.Reports.ListCustom(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.Reports, err = s.Reports.List(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.Consents, err = s.Privacy.ConsentHistory(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.SessionLogs, err = s.SessionLogs.Recent(gctx, userID, 1000)
		return err
	})
	g.Go(func() (err error) {
		out.DataRequests, err = s.Privacy.DataRequests(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.AccessLogs, err = s.Privacy.AccessLogs(gctx, userID, 1000)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export user data: %w", err)
	}
	return out, nil
}

// CreateDataRequest files a data-subject request.  A pending request of
// the same type yields repository.ErrConflict.
func (s *Privacy) CreateDataRequest(ctx context.Context, userID, typ, reason string) (*model.DataRequest, error) {
	dr := &model.DataRequest{UserID: userID, Type: typ, Reason: reason}
	if err := s.Privacy.CreateDataRequest(ctx, dr); err != nil {
		return nil, err
	}
	return dr, nil
}
