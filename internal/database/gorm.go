package database

import (
	"database/sql"
	"log"
	"time"

	gmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm wraps an already opened *sql.DB in a GORM handle so the pool
// settings from Open stay in effect.
func OpenGorm(db *sql.DB, logSQL bool) (*gorm.DB, error) {
	return gorm.Open(gmysql.New(gmysql.Config{Conn: db}), GormConfig(logSQL))
}

// GormConfig is shared with tests that open SQLite.  TranslateError turns
// driver-specific unique violations into gorm.ErrDuplicatedKey.
func GormConfig(logSQL bool) *gorm.Config {
	lvl := logger.Silent
	if logSQL {
		lvl = logger.Info
	}
	return &gorm.Config{
		Logger: logger.New(log.New(log.Writer(), "", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}
