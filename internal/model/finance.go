package model

import "time"

// Budget is a monthly spending limit for one category.  A user holds at
// most one budget per (category, month, year).
type Budget struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string    `gorm:"type:varchar(36);uniqueIndex:ux_budget_period;not null" json:"userId"`
	Category       string    `gorm:"type:varchar(64);uniqueIndex:ux_budget_period;not null" json:"category"`
	Amount         float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Spent          float64   `gorm:"type:decimal(12,2);not null;default:0" json:"spent"`
	Month          int       `gorm:"uniqueIndex:ux_budget_period;not null" json:"month"`
	Year           int       `gorm:"uniqueIndex:ux_budget_period;not null" json:"year"`
	AlertThreshold int       `gorm:"not null;default:80" json:"alertThreshold"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Budget) TableName() string { return "budgets" }

// UsagePercent is Spent as a percentage of Amount.
func (b Budget) UsagePercent() float64 {
	if b.Amount <= 0 {
		return 0
	}
	return b.Spent / b.Amount * 100
}

// Notification types.
const (
	NotificationInfo        = "INFO"
	NotificationWarning     = "WARNING"
	NotificationBudgetAlert = "BUDGET_ALERT"
	NotificationSecurity    = "SECURITY"
	NotificationSystem      = "SYSTEM"
)

type Notification struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"`
	Title     string    `gorm:"type:varchar(191);not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Link      string    `gorm:"type:varchar(512)" json:"link,omitempty"`
	Read      bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }
