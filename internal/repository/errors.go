// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller.  Handlers translate it into 404 so foreign rows are never
// distinguishable from missing ones.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an account with the email already exists.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when a unique business key is already taken
// (budget period, OAuth link).
var ErrDuplicate = errors.New("duplicate")

// ErrForbidden is returned when the caller attempts an operation the
// current state does not allow (second admin setup, suspending oneself).
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// existing state, such as a second pending data request of one type or
// resolving an already resolved event.
var ErrConflict = errors.New("conflict")

// ErrTokenInvalid and ErrTokenExpired report unusable one-time tokens.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// isDuplicate recognises unique-key violations.  GORM translates them when
// TranslateError is on; the MySQL 1062 check covers raw driver errors.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Page is a normalised page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page to >= 1 and limit to 1..100 (default 20).
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

func (p Page) apply(db *gorm.DB) *gorm.DB { return db.Offset(p.Offset()).Limit(p.Limit) }
