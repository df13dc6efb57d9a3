package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

type BudgetRepo struct{ DB *gorm.DB }

func NewBudgetRepo(db *gorm.DB) *BudgetRepo { return &BudgetRepo{DB: db} }

// List returns the user's budgets, optionally for one month/year (zero
// disables each filter).
func (r *BudgetRepo) List(ctx context.Context, userID string, month, year int) ([]model.Budget, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if month > 0 {
		q = q.Where("month = ?", month)
	}
	if year > 0 {
		q = q.Where("year = ?", year)
	}
	var out []model.Budget
	err := q.Order("year DESC, month DESC, category ASC").Find(&out).Error
	return out, err
}

// Create inserts b.  A second budget for the same (user, category, month,
// year) yields ErrDuplicate and no row.
func (r *BudgetRepo) Create(ctx context.Context, b *model.Budget) error {
	if err := r.DB.WithContext(ctx).Create(b).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get returns the budget if it belongs to userID.
func (r *BudgetRepo) Get(ctx context.Context, userID, id string) (*model.Budget, error) {
	var b model.Budget
	if err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// Save writes every column of an owned budget.
func (r *BudgetRepo) Save(ctx context.Context, b *model.Budget) error {
	res := r.DB.WithContext(ctx).Model(&model.Budget{}).
		Where("id = ? AND user_id = ?", b.ID, b.UserID).
		Select("category", "amount", "spent", "month", "year", "alert_threshold", "updated_at").
		Updates(b)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an owned budget.
func (r *BudgetRepo) Delete(ctx context.Context, userID, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Budget{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BudgetRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Budget{}).Count(&n).Error
	return n, err
}
