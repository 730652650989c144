package storefront

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is a regular customer
	RoleUser UserRole = "user"
	// RoleAdmin can manage the catalog, orders and users
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role grants admin access
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseRole returns the role for a string, RoleUser when unknown.
func ParseRole(s string) (UserRole, bool) {
	r := UserRole(s)
	if !r.IsValid() {
		return RoleUser, false
	}
	return r, true
}
