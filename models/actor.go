package models

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Actor identifies the caller of a mutating operation. Role decides what the
// operation is allowed to touch instead of a view-layer gate.
type Actor struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
