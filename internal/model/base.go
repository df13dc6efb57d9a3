package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID returns a fresh primary key.  Every table uses string UUIDs so ids
// can be generated by the application before the insert happens.
func newID() string { return uuid.NewString() }

// All lists every persisted model.  It feeds AutoMigrate in tests; the
// production schema is owned by the SQL migrations in internal/database.
func All() []any {
	return []any{
		&User{}, &Account{}, &PasswordResetToken{}, &VerificationToken{},
		&Admin{}, &AdminLog{}, &AdminSetup{},
		&Session{}, &SessionLog{}, &SecurityEvent{},
		&Budget{}, &Notification{}, &CustomReport{}, &Report{},
		&UserConsent{}, &DataAccessLog{}, &DataRequest{},
	}
}

// assignID is shared by the BeforeCreate hooks below.
func assignID(id *string) {
	if *id == "" {
		*id = newID()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error               { assignID(&u.ID); return nil }
func (a *Account) BeforeCreate(*gorm.DB) error            { assignID(&a.ID); return nil }
func (t *PasswordResetToken) BeforeCreate(*gorm.DB) error { assignID(&t.ID); return nil }
func (a *Admin) BeforeCreate(*gorm.DB) error              { assignID(&a.ID); return nil }
func (l *AdminLog) BeforeCreate(*gorm.DB) error           { assignID(&l.ID); return nil }
func (s *Session) BeforeCreate(*gorm.DB) error            { assignID(&s.ID); return nil }
func (l *SessionLog) BeforeCreate(*gorm.DB) error         { assignID(&l.ID); return nil }
func (e *SecurityEvent) BeforeCreate(*gorm.DB) error      { assignID(&e.ID); return nil }
func (b *Budget) BeforeCreate(*gorm.DB) error             { assignID(&b.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error       { assignID(&n.ID); return nil }
func (r *CustomReport) BeforeCreate(*gorm.DB) error       { assignID(&r.ID); return nil }
func (r *Report) BeforeCreate(*gorm.DB) error             { assignID(&r.ID); return nil }
func (c *UserConsent) BeforeCreate(*gorm.DB) error        { assignID(&c.ID); return nil }
func (l *DataAccessLog) BeforeCreate(*gorm.DB) error      { assignID(&l.ID); return nil }
func (r *DataRequest) BeforeCreate(*gorm.DB) error        { assignID(&r.ID); return nil }
