package authz

import "chargehub/internal/models"

// Scope is the per-request authorization predicate. It is computed once when
// the session middleware resolves the user and composed with queries by the
// repository layer, instead of branching per route.
type Scope struct {
	UserID string
	Admin  bool
	// Host is set when every company membership the user holds carries the
	// HOST role; session reads then narrow to rows matching the member's
	// own RFID tags.
	Host bool
}

// ForUser derives a scope from the account and its company memberships.
func ForUser(user *models.User, memberships []models.CompanyMember) Scope {
	scope := Scope{
		UserID: user.ID,
		Admin:  user.IsAdmin(),
	}
	if scope.Admin || len(memberships) == 0 {
		return scope
	}

	scope.Host = true
	for _, m := range memberships {
		if m.Role != models.MemberRoleHost {
			scope.Host = false
			break
		}
	}
	return scope
}

// CanManage reports whether the scope may perform admin-only mutations.
func (s Scope) CanManage() bool {
	return s.Admin
}
