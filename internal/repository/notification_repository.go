package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

type NotificationRepo struct{ DB *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

func (r *NotificationRepo) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Notification
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

// MarkRead flags an owned notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	var n model.Notification
	if err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, notFound(err)
	}
	if !n.Read {
		if err := r.DB.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
			return nil, err
		}
		n.Read = true
	}
	return &n, nil
}

// MarkAllRead returns how many notifications changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepo) Delete(ctx context.Context, userID, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
