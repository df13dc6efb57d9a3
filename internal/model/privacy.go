package model

import "time"

// Consent purposes accepted by the consent endpoints.
var ConsentPurposes = []string{"ESSENTIAL", "ANALYTICS", "MARKETING", "THIRD_PARTY_SHARING", "PERSONALIZATION"}

// UserConsent is one consent decision.  Rows are never updated: each
// decision appends a new row so the full history stays auditable; the
// newest row per purpose is the effective one.
type UserConsent struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index:ix_consent_user_purpose;not null" json:"userId"`
	Purpose   string    `gorm:"type:varchar(32);index:ix_consent_user_purpose;not null" json:"purpose"`
	Granted   bool      `gorm:"not null" json:"granted"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent string    `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserConsent) TableName() string { return "user_consents" }

// DataAccessLog records every access a data subject makes to their data.
type DataAccessLog struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Action    string    `gorm:"type:varchar(32);not null" json:"action"`
	Resource  string    `gorm:"type:varchar(64)" json:"resource,omitempty"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent string    `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (DataAccessLog) TableName() string { return "data_access_logs" }

// Data-subject request types and statuses.
var DataRequestTypes = []string{"ACCESS", "PORTABILITY", "DELETION", "RECTIFICATION"}

const (
	RequestPending    = "PENDING"
	RequestInProgress = "IN_PROGRESS"
	RequestCompleted  = "COMPLETED"
	RequestRejected   = "REJECTED"
)

type DataRequest struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string     `gorm:"type:varchar(36);index;not null" json:"userId"`
	Type        string     `gorm:"type:varchar(20);not null" json:"type"`
	Status      string     `gorm:"type:varchar(20);not null;default:PENDING;index" json:"status"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (DataRequest) TableName() string { return "data_requests" }
