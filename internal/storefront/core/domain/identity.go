package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the caller as asserted by the upstream gateway.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanAccess reports whether the caller may act on a resource owned by userID.
func (i Identity) CanAccess(userID string) bool {
	return i.IsAdmin() || (i.UserID != "" && i.UserID == userID)
}
