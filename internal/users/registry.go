package users

import (
	"errors"

	"github.com/hongminglow/agentauth/internal/models"
)

// ErrNotFound indicates the id is not part of the registry.
var ErrNotFound = errors.New("user not found")

// Lookup resolves demo identities. A real identity provider can stand in for
// the static registry without the session layer noticing.
type Lookup interface {
	Find(id string) (models.User, error)
	List() []models.User
}

var fakeUsers = []models.User{
	{ID: "user-1", Name: "John Doe", Email: "john.doe@example.com", Role: models.AdminRole},
	{ID: "user-2", Name: "Jane Smith", Email: "jane.smith@example.com", Role: models.UserRole},
	{ID: "user-3", Name: "Bob Johnson", Email: "bob.johnson@example.com", Role: models.UserRole},
}

// Ensure Static satisfies Lookup at compile time.
var _ Lookup = Static{}

// Static is the fixed, compile-time user list.
type Static struct{}

// NewStatic returns the fixed registry.
func NewStatic() Static {
	return Static{}
}

// Find returns the user with the given id.
func (Static) Find(id string) (models.User, error) {
	for _, u := range fakeUsers {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// List returns a copy of the registry in display order.
func (Static) List() []models.User {
	out := make([]models.User, len(fakeUsers))
	copy(out, fakeUsers)
	return out
}
