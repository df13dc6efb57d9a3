// Package auth holds the single identity abstraction shared by end users
// and administrators: a Principal carried in a signed cookie and checked
// against capabilities instead of ad hoc role strings.
package auth

import "github.com/iliyamo/fintrack/internal/model"

// Kind distinguishes the two identity spaces.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// Capability is a coarse permission checked by middleware.
type Capability string

const (
	CapOwnData      Capability = "own_data"      // read and mutate rows owned by the principal
	CapAdminRead    Capability = "admin_read"    // back-office dashboards and listings
	CapAdminWrite   Capability = "admin_write"   // resolve events, update data requests, reset passwords
	CapManageAdmins Capability = "manage_admins" // create and suspend administrators
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Kind  Kind
	ID    string
	Email string
	Name  string
	Role  string // admin role; empty for users
	// SessionID is users only.  Inside a signed token (the "sid" claim) it
	// holds the opaque session token; RequireUser swaps it for the id of
	// the sessions row, so handlers always see the row id.
	SessionID string
}

// Can reports whether the principal holds the capability.
func (p *Principal) Can(c Capability) bool {
	if p == nil || p.ID == "" {
		return false
	}
	switch p.Kind {
	case KindUser:
		return c == CapOwnData
	case KindAdmin:
		switch c {
		case CapAdminRead, CapAdminWrite:
			return p.Role == model.RoleAdmin || p.Role == model.RoleSuperAdmin
		case CapManageAdmins:
			return p.Role == model.RoleSuperAdmin
		}
	}
	return false
}

// UserPrincipal builds the principal for an end-user session.
func UserPrincipal(u *model.User, sessionID string) Principal {
	return Principal{Kind: KindUser, ID: u.ID, Email: u.Email, Name: u.Name, SessionID: sessionID}
}

// AdminPrincipal builds the principal for an administrator.
func AdminPrincipal(a *model.Admin) Principal {
	return Principal{Kind: KindAdmin, ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
