package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/fintrack/internal/model"
)

type PrivacyRepo struct{ DB *gorm.DB }

func NewPrivacyRepo(db *gorm.DB) *PrivacyRepo { return &PrivacyRepo{DB: db} }

// AppendConsents inserts one row per decision.  Earlier rows stay.
func (r *PrivacyRepo) AppendConsents(ctx context.Context, rows []model.UserConsent) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&rows).Error
}

// ConsentHistory returns every decision of the user, newest first.
func (r *PrivacyRepo) ConsentHistory(ctx context.Context, userID string) ([]model.UserConsent, error) {
	var out []model.UserConsent
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

// LatestConsents returns the effective decision per purpose.
func (r *PrivacyRepo) LatestConsents(ctx context.Context, userID string) (map[string]model.UserConsent, error) {
	hist, err := r.ConsentHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.UserConsent, len(model.ConsentPurposes))
	for _, c := range hist {
		if _, seen := out[c.Purpose]; !seen {
			out[c.Purpose] = c
		}
	}
	return out, nil
}

func (r *PrivacyRepo) LogAccess(ctx context.Context, l *model.DataAccessLog) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *PrivacyRepo) AccessLogs(ctx context.Context, userID string, limit int) ([]model.DataAccessLog, error) {
	var out []model.DataAccessLog
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// CreateDataRequest inserts a PENDING request unless the user already has
// a pending one of the same type (ErrConflict).  The user row is locked
// first so two concurrent requests for one user run the check one after
// the other.
func (r *PrivacyRepo) CreateDataRequest(ctx context.Context, dr *model.DataRequest) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", dr.UserID).First(&owner).Error; err != nil {
			return notFound(err)
		}
		var n int64
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&model.DataRequest{}).
			Where("user_id = ? AND type = ? AND status = ?", dr.UserID, dr.Type, model.RequestPending).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		dr.Status = model.RequestPending
		return tx.Create(dr).Error
	})
}

func (r *PrivacyRepo) DataRequests(ctx context.Context, userID string) ([]model.DataRequest, error) {
	var out []model.DataRequest
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// AllDataRequests lists requests of every user, optionally by status.
func (r *PrivacyRepo) AllDataRequests(ctx context.Context, status string, p Page) ([]model.DataRequest, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.DataRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.DataRequest
	err := p.apply(q.Order("created_at ASC")).Find(&out).Error
	return out, total, err
}

// UpdateDataRequestStatus moves a request to status; COMPLETED and
// REJECTED stamp completed_at.  Finished requests cannot change again.
func (r *PrivacyRepo) UpdateDataRequestStatus(ctx context.Context, id, status string, at time.Time) (*model.DataRequest, error) {
	var dr model.DataRequest
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&dr).Error; err != nil {
		return nil, notFound(err)
	}
	if dr.Status == model.RequestCompleted || dr.Status == model.RequestRejected {
		return nil, ErrConflict
	}
	updates := map[string]any{"status": status}
	if status == model.RequestCompleted || status == model.RequestRejected {
		updates["completed_at"] = at
		dr.CompletedAt = &at
	}
	if err := r.DB.WithContext(ctx).Model(&dr).Updates(updates).Error; err != nil {
		return nil, err
	}
	dr.Status = status
	return &dr, nil
}

func (r *PrivacyRepo) CountPendingDataRequests(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.DataRequest{}).Where("status = ?", model.RequestPending).Count(&n).Error
	return n, err
}
