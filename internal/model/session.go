package model

import "time"

// Session is an end-user login.  Token is the opaque id embedded in the
// signed session cookie; a session is live while RevokedAt is nil and
// ExpiresAt is in the future.
type Session struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string     `gorm:"type:varchar(36);index;not null" json:"userId"`
	Token     string     `gorm:"type:varchar(64);uniqueIndex:ux_sessions_token;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	IPAddress string     `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent string     `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (Session) TableName() string { return "sessions" }

// Live reports whether the session can still authenticate requests.
func (s Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Session log events.
const (
	EventLogin       = "LOGIN"
	EventLogout      = "LOGOUT"
	EventRevoked     = "REVOKED"
	EventLoginFailed = "LOGIN_FAILED"
)

// SessionLog is the audit trail of session lifecycle events with the
// device and location metadata captured at the time.
type SessionLog struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	SessionID string    `gorm:"type:varchar(36);index" json:"sessionId,omitempty"`
	Event     string    `gorm:"type:varchar(20);not null" json:"event"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent string    `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	Device    string    `gorm:"type:varchar(64)" json:"device,omitempty"`
	Browser   string    `gorm:"type:varchar(64)" json:"browser,omitempty"`
	OS        string    `gorm:"type:varchar(64)" json:"os,omitempty"`
	Country   string    `gorm:"type:varchar(64)" json:"country,omitempty"`
	City      string    `gorm:"type:varchar(120)" json:"city,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (SessionLog) TableName() string { return "session_logs" }

// Security event severities and types.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"

	SecurityFailedLogin      = "FAILED_LOGIN"
	SecurityAdminLoginFailed = "ADMIN_LOGIN_FAILED"
	SecurityPasswordChanged  = "PASSWORD_CHANGED"
	SecurityPasswordReset    = "PASSWORD_RESET"
	SecuritySessionsRevoked  = "SESSIONS_REVOKED"
	SecurityRateLimited      = "RATE_LIMITED"
)

// SecurityEvent is an append-only record of security-relevant occurrences.
// UserID is nil for events that cannot be attributed (unknown email).
type SecurityEvent struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      *string    `gorm:"type:varchar(36);index" json:"userId,omitempty"`
	Type        string     `gorm:"type:varchar(40);index;not null" json:"type"`
	Severity    string     `gorm:"type:varchar(10);index;not null" json:"severity"`
	Description string     `gorm:"type:text" json:"description"`
	IPAddress   string     `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent   string     `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	Resolved    bool       `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedBy  *string    `gorm:"type:varchar(36)" json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
}

func (SecurityEvent) TableName() string { return "security_events" }
