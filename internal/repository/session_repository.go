package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

type SessionRepo struct{ DB *gorm.DB }

func NewSessionRepo(db *gorm.DB) *SessionRepo { return &SessionRepo{DB: db} }

func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

// GetLiveByToken returns the session behind a cookie if it is neither
// revoked nor expired.
func (r *SessionRepo) GetLiveByToken(ctx context.Context, token string, now time.Time) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).
		Where("token = ? AND revoked_at IS NULL AND expires_at > ?", token, now).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ListActive returns the user's live sessions, newest first.
func (r *SessionRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]model.Session, error) {
	var out []model.Session
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// Revoke revokes one of the user's live sessions.  Sessions owned by others
// or already revoked yield ErrNotFound.
func (r *SessionRepo) Revoke(ctx context.Context, userID, id string, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", id, userID).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllExcept revokes every live session of the user except keepID
// (empty keeps none) and returns the sessions it revoked.
func (r *SessionRepo) RevokeAllExcept(ctx context.Context, userID, keepID string, at time.Time) ([]model.Session, error) {
	var victims []model.Session
	q := r.DB.WithContext(ctx).Where("user_id = ? AND revoked_at IS NULL", userID)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	if err := q.Find(&victims).Error; err != nil {
		return nil, err
	}
	if len(victims) == 0 {
		return nil, nil
	}
	ids := make([]string, len(victims))
	for i, s := range victims {
		ids[i] = s.ID
	}
	err := r.DB.WithContext(ctx).Model(&model.Session{}).
		Where("id IN ? AND revoked_at IS NULL", ids).
		Update("revoked_at", at).Error
	return victims, err
}

// CountActive counts live sessions across all users.
func (r *SessionRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Session{}).
		Where("revoked_at IS NULL AND expires_at > ?", now).
		Count(&n).Error
	return n, err
}

// SessionLogFilter narrows List.
type SessionLogFilter struct {
	UserID string
	Event  string
}

type SessionLogRepo struct{ DB *gorm.DB }

func NewSessionLogRepo(db *gorm.DB) *SessionLogRepo { return &SessionLogRepo{DB: db} }

func (r *SessionLogRepo) Append(ctx context.Context, l *model.SessionLog) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

// AppendMany inserts logs in one batch statement.
func (r *SessionLogRepo) AppendMany(ctx context.Context, logs []model.SessionLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// Recent returns the user's latest logs.
func (r *SessionLogRepo) Recent(ctx context.Context, userID string, limit int) ([]model.SessionLog, error) {
	var out []model.SessionLog
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *SessionLogRepo) List(ctx context.Context, f SessionLogFilter, p Page) ([]model.SessionLog, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.SessionLog{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Event != "" {
		q = q.Where("event = ?", f.Event)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.SessionLog
	err := p.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}
