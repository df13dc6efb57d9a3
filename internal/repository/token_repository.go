package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/fintrack/internal/model"
)

// TokenRepo persists the one-time email tokens: 6-digit verification codes
// and hashed password-reset tokens.
type TokenRepo struct{ DB *gorm.DB }

func NewTokenRepo(db *gorm.DB) *TokenRepo { return &TokenRepo{DB: db} }

// ReplaceVerificationCode deletes every code issued for email and stores
// the new one.
func (r *TokenRepo) ReplaceVerificationCode(ctx context.Context, email, code string, exp time.Time) error {
	email = NormalizeEmail(email)
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identifier = ?", email).Delete(&model.VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.VerificationToken{Identifier: email, Token: code, ExpiresAt: exp}).Error
	})
}

// ConsumeVerificationCode checks (email, code).  A missing pair yields
// ErrTokenInvalid; an expired one is deleted and yields ErrTokenExpired; a
// valid one is deleted and nil is returned, so every code works once.
func (r *TokenRepo) ConsumeVerificationCode(ctx context.Context, email, code string, now time.Time) error {
	email = NormalizeEmail(email)
	var vt model.VerificationToken
	err := r.DB.WithContext(ctx).Where("identifier = ? AND token = ?", email, code).First(&vt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Where("identifier = ? AND token = ?", email, code).Delete(&model.VerificationToken{})
	if res.Error != nil {
		return res.Error
	}
	if !now.Before(vt.ExpiresAt) {
		return ErrTokenExpired
	}
	if res.RowsAffected == 0 {
		// consumed concurrently
		return ErrTokenInvalid
	}
	return nil
}

// CreateResetToken marks earlier unused tokens for email as used and
// stores the new token digest.
func (r *TokenRepo) CreateResetToken(ctx context.Context, email, tokenHash string, exp time.Time) error {
	email = NormalizeEmail(email)
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.PasswordResetToken{}).
			Where("email = ? AND used = ?", email, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&model.PasswordResetToken{Email: email, TokenHash: tokenHash, ExpiresAt: exp}).Error
	})
}

// ClaimResetToken looks the digest up and atomically flips it to used.  A
// second claim of the same token fails with ErrTokenInvalid.
func (r *TokenRepo) ClaimResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if t.Used {
		return nil, ErrTokenInvalid
	}
	if !now.Before(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	res := r.DB.WithContext(ctx).Model(&model.PasswordResetToken{}).
		Where("id = ? AND used = ?", t.ID, false).
		Update("used", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTokenInvalid
	}
	t.Used = true
	return &t, nil
}

// InvalidateResetTokens marks every unused token for email as used.
func (r *TokenRepo) InvalidateResetTokens(ctx context.Context, email string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.PasswordResetToken{}).
		Where("email = ? AND used = ?", NormalizeEmail(email), false).
		Update("used", true)
	return res.RowsAffected, res.Error
}
