package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the access level carried by every authenticated user
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole parses a role string, case-insensitively
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Label returns the display label of the role
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleUser:
		return "Client"
	default:
		return "Guest"
	}
}

func (r Role) String() string {
	return string(r)
}

// Actor is the already-authenticated identity performing an operation.
// The zero value is a guest.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// NewActor builds an actor from a user id and role
func NewActor(userID uuid.UUID, role Role) Actor {
	return Actor{UserID: userID, Role: role}
}

// IsGuest reports whether the actor carries no authenticated identity
func (a Actor) IsGuest() bool {
	return a.UserID == uuid.Nil || !a.Role.IsValid()
}

// IsAdmin reports whether the actor holds the privileged role
func (a Actor) IsAdmin() bool {
	return !a.IsGuest() && a.Role == RoleAdmin
}

// Owns reports whether the actor is the given user
func (a Actor) Owns(userID uuid.UUID) bool {
	return !a.IsGuest() && a.UserID == userID
}
