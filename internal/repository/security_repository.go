package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

// SecurityEventFilter narrows List; nil Resolved means both.
type SecurityEventFilter struct {
	UserID   string
	Severity string
	Type     string
	Resolved *bool
}

type SecurityEventRepo struct{ DB *gorm.DB }

func NewSecurityEventRepo(db *gorm.DB) *SecurityEventRepo { return &SecurityEventRepo{DB: db} }

// Record appends one event.
func (r *SecurityEventRepo) Record(ctx context.Context, e *model.SecurityEvent) error {
	if e.Severity == "" {
		e.Severity = model.SeverityLow
	}
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *SecurityEventRepo) List(ctx context.Context, f SecurityEventFilter, p Page) ([]model.SecurityEvent, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.SecurityEvent{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Resolved != nil {
		q = q.Where("resolved = ?", *f.Resolved)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.SecurityEvent
	err := p.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}

// Resolve marks an unresolved event as resolved by adminID.
func (r *SecurityEventRepo) Resolve(ctx context.Context, id, adminID string, at time.Time) (*model.SecurityEvent, error) {
	var e model.SecurityEvent
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	if e.Resolved {
		return nil, ErrConflict
	}
	res := r.DB.WithContext(ctx).Model(&model.SecurityEvent{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{"resolved": true, "resolved_by": adminID, "resolved_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	e.Resolved, e.ResolvedBy, e.ResolvedAt = true, &adminID, &at
	return &e, nil
}

func (r *SecurityEventRepo) CountUnresolved(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.SecurityEvent{}).Where("resolved = ?", false).Count(&n).Error
	return n, err
}
