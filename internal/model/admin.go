package model

import "time"

// Admin roles and statuses.  Admins live in their own identity space and
// never share rows with users.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"

	AdminActive    = "ACTIVE"
	AdminSuspended = "SUSPENDED"
)

type Admin struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string     `gorm:"type:varchar(191);uniqueIndex:ux_admins_email;not null" json:"email"`
	Name         string     `gorm:"type:varchar(120);not null" json:"name"`
	PasswordHash string     `gorm:"type:varchar(100);not null" json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:ADMIN" json:"role"`
	Status       string     `gorm:"type:varchar(20);not null;default:ACTIVE" json:"status"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Admin) TableName() string { return "admins" }

// AdminSetup holds at most one row, written by the first-admin setup.  Its
// primary key makes concurrent setups collide instead of both succeeding.
type AdminSetup struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	AdminID   string `gorm:"type:varchar(36);not null"`
	CreatedAt time.Time
}

func (AdminSetup) TableName() string { return "admin_setup" }

// AdminSetupID is the only id admin_setup accepts.
const AdminSetupID = 1

// Active reports whether the admin may authenticate.
func (a Admin) Active() bool { return a.Status == AdminActive }

// AdminLog is the append-only audit trail of administrative actions.
type AdminLog struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AdminID   string    `gorm:"type:varchar(36);index;not null" json:"adminId"`
	Action    string    `gorm:"type:varchar(64);index;not null" json:"action"`
	Target    string    `gorm:"type:varchar(191)" json:"target,omitempty"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent string    `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (AdminLog) TableName() string { return "admin_logs" }

// Audit actions written by the admin handlers.
const (
	ActionLogin                  = "LOGIN"
	ActionLogout                 = "LOGOUT"
	ActionAdminCreated           = "ADMIN_CREATED"
	ActionAdminStatusChanged     = "ADMIN_STATUS_CHANGED"
	ActionPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	ActionSecurityEventResolved  = "SECURITY_EVENT_RESOLVED"
	ActionDataRequestUpdated     = "DATA_REQUEST_UPDATED"
	ActionUserViewed             = "USER_VIEWED"
)
