package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

// NormalizeEmail lower-cases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u.  A taken email yields ErrEmailExists and no row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ExistsByEmail reports whether the address is taken.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("email = ?", NormalizeEmail(email)).Count(&n).Error
	return n > 0, err
}

// MarkVerified stamps email_verified_at for the address.
func (r *UserRepo) MarkVerified(ctx context.Context, email string, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Update("email_verified_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile applies the non-nil fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, name, image *string) (*model.User, error) {
	updates := map[string]any{}
	if name != nil {
		updates["name"] = strings.TrimSpace(*name)
	}
	if image != nil {
		updates["image"] = *image
	}
	if len(updates) > 0 {
		res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return r.GetByID(ctx, id)
}

// SetPassword replaces the stored bcrypt hash.
func (r *UserRepo) SetPassword(ctx context.Context, id, hash string) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of users whose name or email contains search.
func (r *UserRepo) List(ctx context.Context, search string, p Page) ([]model.User, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.User{})
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	err := p.apply(q.Order("created_at DESC")).Find(&users).Error
	return users, total, err
}

// Count returns the number of users, optionally only verified ones or ones
// created after since (zero time disables the filter).
func (r *UserRepo) Count(ctx context.Context, verifiedOnly bool, since time.Time) (int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.User{})
	if verifiedOnly {
		q = q.Where("email_verified_at IS NOT NULL")
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// FindByAccount returns the user linked to an OAuth identity.
func (r *UserRepo) FindByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error) {
	var acc model.Account
	err := r.DB.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).
		First(&acc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return r.GetByID(ctx, acc.UserID)
}

// LinkOAuth resolves the OAuth identity to a user.  An existing link wins;
// otherwise the identity is attached to the user with the same email or a
// new verified user is created.  Everything runs in one transaction so a
// concurrent callback cannot create two users.
func (r *UserRepo) LinkOAuth(ctx context.Context, provider, providerAccountID, email, name, image string, now time.Time) (*model.User, error) {
	var out model.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc model.Account
		err := tx.Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).First(&acc).Error
		if err == nil {
			return tx.Where("id = ?", acc.UserID).First(&out).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", NormalizeEmail(email)).First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = model.User{Email: NormalizeEmail(email), Name: name, Image: image, EmailVerifiedAt: &now}
			if err := tx.Create(&out).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case out.EmailVerifiedAt == nil:
			if err := tx.Model(&out).Update("email_verified_at", now).Error; err != nil {
				return err
			}
			out.EmailVerifiedAt = &now
		}

		link := model.Account{UserID: out.ID, Provider: provider, ProviderAccountID: providerAccountID}
		if err := tx.Create(&link).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
