package models

// Role names carried by the demo users. Roles are free text; these are the
// values the fixed registry uses.
const (
	AdminRole = "admin"
	UserRole  = "user"
)

// User captures the public fields of a demo identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Label renders the user the way the login menu lists it.
func (u User) Label() string {
	return u.Name + " (" + u.Role + ")"
}
