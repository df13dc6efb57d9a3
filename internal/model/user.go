package model

import "time"

// User represents an end-user account as stored in the `users` table.
// Accounts created through the OAuth provider have no password hash and
// are verified on creation.  Users are never hard-deleted.
//
// Fields:
//
//	ID              – primary key (UUID).
//	Name            – display name, optional.
//	Email           – unique, lower-cased address.
//	PasswordHash    – bcrypt hash; nil for OAuth-only accounts.
//	Image           – avatar URL, optional.
//	EmailVerifiedAt – set once the 6-digit code was confirmed.
type User struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name            string     `gorm:"type:varchar(120)" json:"name"`
	Email           string     `gorm:"type:varchar(191);uniqueIndex:ux_users_email;not null" json:"email"`
	PasswordHash    *string    `gorm:"type:varchar(100)" json:"-"`
	Image           string     `gorm:"type:varchar(512)" json:"image,omitempty"`
	EmailVerifiedAt *time.Time `json:"emailVerified,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// Verified reports whether the email address was confirmed.
func (u User) Verified() bool { return u.EmailVerifiedAt != nil }

// HasPassword reports whether the account can log in with credentials.
func (u User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

// Account links a user to an identity at the external OAuth provider.
type Account struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID            string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Provider          string    `gorm:"type:varchar(32);uniqueIndex:ux_accounts_provider;not null" json:"provider"`
	ProviderAccountID string    `gorm:"type:varchar(191);uniqueIndex:ux_accounts_provider;not null" json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (Account) TableName() string { return "accounts" }

// PasswordResetToken models a row in `password_reset_tokens`.  Only the
// SHA-256 hex digest of the token is stored; the raw value is mailed to the
// user.  At most one unused token per email is live at any time: issuing a
// new one marks older ones used.
type PasswordResetToken struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Email     string    `gorm:"type:varchar(191);index;not null"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex:ux_prt_hash;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

// VerificationToken holds the numeric email-verification code.  The pair
// (Identifier, Token) is the primary key; Identifier is the email.
type VerificationToken struct {
	Identifier string    `gorm:"type:varchar(191);primaryKey"`
	Token      string    `gorm:"type:varchar(16);primaryKey"`
	ExpiresAt  time.Time `gorm:"not null"`
}

func (VerificationToken) TableName() string { return "verification_tokens" }
