package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

type ReportRepo struct{ DB *gorm.DB }

func NewReportRepo(db *gorm.DB) *ReportRepo { return &ReportRepo{DB: db} }

func (r *ReportRepo) ListCustom(ctx context.Context, userID string) ([]model.CustomReport, error) {
	var out []model.CustomReport
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("is_favorite DESC, updated_at DESC").Find(&out).Error
	return out, err
}

func (r *ReportRepo) CreateCustom(ctx context.Context, cr *model.CustomReport) error {
	return r.DB.WithContext(ctx).Create(cr).Error
}

// SetFavorite updates an owned custom report.  A nil fav toggles the flag.
func (r *ReportRepo) SetFavorite(ctx context.Context, userID, id string, fav *bool) (*model.CustomReport, error) {
	var cr model.CustomReport
	if err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&cr).Error; err != nil {
		return nil, notFound(err)
	}
	next := !cr.IsFavorite
	if fav != nil {
		next = *fav
	}
	if err := r.DB.WithContext(ctx).Model(&cr).Update("is_favorite", next).Error; err != nil {
		return nil, err
	}
	cr.IsFavorite = next
	return &cr, nil
}

func (r *ReportRepo) DeleteCustom(ctx context.Context, userID, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.CustomReport{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepo) List(ctx context.Context, userID string) ([]model.Report, error) {
	var out []model.Report
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
	return r.DB.WithContext(ctx).Create(rep).Error
}

// Get returns the report if it belongs to userID.
func (r *ReportRepo) Get(ctx context.Context, userID, id string) (*model.Report, error) {
	var rep model.Report
	if err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rep).Error; err != nil {
		return nil, notFound(err)
	}
	return &rep, nil
}

// Finish stores the final status and metadata of a generated report.
func (r *ReportRepo) Finish(ctx context.Context, rep *model.Report) error {
	return r.DB.WithContext(ctx).Model(&model.Report{}).
		Where("id = ?", rep.ID).
		Select("status", "metadata").
		Updates(rep).Error
}
