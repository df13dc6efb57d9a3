package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

type AdminRepo struct{ DB *gorm.DB }

func NewAdminRepo(db *gorm.DB) *AdminRepo { return &AdminRepo{DB: db} }

func (r *AdminRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Admin{}).Count(&n).Error
	return n, err
}

// CreateFirst inserts a as SUPER_ADMIN only while the table is empty, and
// appends the ADMIN_CREATED audit row in the same transaction.  Once any
// admin exists it returns ErrForbidden.
//
// The admin_setup row is claimed before the count: a concurrent setup
// blocks on its primary key and fails with a duplicate once the winner
// commits, so a count taken from a stale snapshot can never let two
// SUPER_ADMINs in.
func (r *AdminRepo) CreateFirst(ctx context.Context, a *model.Admin, audit model.AdminLog) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := model.AdminSetup{ID: model.AdminSetupID, AdminID: "pending"}
		if err := tx.Create(&guard).Error; err != nil {
			if isDuplicate(err) {
				return ErrForbidden
			}
			return err
		}
		var n int64
		if err := tx.Model(&model.Admin{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrForbidden
		}
		a.Email = NormalizeEmail(a.Email)
		a.Role = model.RoleSuperAdmin
		a.Status = model.AdminActive
		if err := tx.Create(a).Error; err != nil {
			if isDuplicate(err) {
				return ErrForbidden
			}
			return err
		}
		if err := tx.Model(&guard).Update("admin_id", a.ID).Error; err != nil {
			return err
		}
		audit.AdminID = a.ID
		audit.Action = model.ActionAdminCreated
		return tx.Create(&audit).Error
	})
}

// Create inserts an additional admin.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	a.Email = NormalizeEmail(a.Email)
	if a.Status == "" {
		a.Status = model.AdminActive
	}
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	if err := r.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AdminRepo) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	var a model.Admin
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AdminRepo) List(ctx context.Context) ([]model.Admin, error) {
	var out []model.Admin
	err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *AdminRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// SetStatus changes an admin's status.  actorID may not change itself.
func (r *AdminRepo) SetStatus(ctx context.Context, actorID, id, status string) (*model.Admin, error) {
	if actorID == id {
		return nil, ErrForbidden
	}
	res := r.DB.WithContext(ctx).Model(&model.Admin{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// AdminLogFilter narrows ListLogs.
type AdminLogFilter struct {
	AdminID string
	Action  string
}

type AdminLogRepo struct{ DB *gorm.DB }

func NewAdminLogRepo(db *gorm.DB) *AdminLogRepo { return &AdminLogRepo{DB: db} }

// Append writes one audit row.  Rows are never updated or deleted.
func (r *AdminLogRepo) Append(ctx context.Context, l *model.AdminLog) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *AdminLogRepo) List(ctx context.Context, f AdminLogFilter, p Page) ([]model.AdminLog, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.AdminLog{})
	if f.AdminID != "" {
		q = q.Where("admin_id = ?", f.AdminID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.AdminLog
	err := p.apply(q.Order("created_at DESC")).Find(&out).Error
	return out, total, err
}
