// Package access decides what an authenticated account may do: which login
// portal it may use, which plan features it is entitled to and which
// frontend routes it may render.
package access

import (
	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/models"
)

// Decision is the outcome of the login portal gate.
type Decision int

const (
	Allow Decision = iota
	DenyInsufficientPermissions
	DenyUseAdminLogin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyInsufficientPermissions:
		return "deny"
	case DenyUseAdminLogin:
		return "redirect-admin"
	default:
		return "unknown"
	}
}

// PortalDecision applies the dual login surface rule:
//
//	admin account, admin portal              allow
//	admin account, user portal, dual access  allow
//	admin account, user portal               redirect to the admin login
//	user account, admin portal               deny
//	user account, user portal                allow
func PortalDecision(account models.Account, adminPortal bool) Decision {
	switch {
	case adminPortal && !account.IsAdmin():
		return DenyInsufficientPermissions
	case !adminPortal && account.IsAdmin() && !account.CanAccessUserFeatures:
		return DenyUseAdminLogin
	default:
		return Allow
	}
}

// Err converts a denial into its client-facing error; Allow yields nil.
func (d Decision) Err() error {
	switch d {
	case DenyInsufficientPermissions:
		return apperr.New(apperr.ErrForbidden, apperr.CodeInsufficientPermissions,
			"Access denied. Admin privileges required.")
	case DenyUseAdminLogin:
		return apperr.New(apperr.ErrForbidden, apperr.CodeUseAdminLogin,
			"Admin accounts must sign in through the admin portal.").With("redirectToAdmin", true)
	default:
		return nil
	}
}

// HasRole reports whether p satisfies role. Admins satisfy every role.
func HasRole(p models.Principal, role string) bool {
	if p.IsAdmin {
		return true
	}
	return p.Role == role
}
