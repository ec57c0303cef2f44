package domain

// Role defines what a dashboard user may do
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AuthContext carries the identity extracted from a verified dashboard
// token. Tokens are issued by the external identity provider; this system
// only verifies them.
type AuthContext struct {
	UserID         string
	OrganizationID string
	Role           Role
}

// IsAdmin reports whether the user may manage marketplace connections
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
