package domain

import "fmt"

// Role identifies who is issuing a command
type Role string

const (
	RoleCashier  Role = "cashier"
	RoleCleaner  Role = "cleaner"
	RoleCustomer Role = "customer"
	RoleSystem   Role = "system"
)

// Actor is the caller of a command operation, as supplied by the
// authentication layer.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by the scheduler and the expiry sweeper.
var SystemActor = Actor{ID: "washbay", Role: RoleSystem}

// IsPrivileged reports whether the actor is a facility operator.
// The system actor counts as privileged.
func (a Actor) IsPrivileged() bool {
	switch a.Role {
	case RoleCashier, RoleCleaner, RoleSystem:
		return true
	default:
		return false
	}
}

func (a Actor) String() string {
	if a.ID == "" {
		return string(a.Role)
	}
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCashier, RoleCleaner, RoleCustomer, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// RequirePrivileged fails with ErrNotPermitted unless the actor is an operator.
func RequirePrivileged(a Actor, op string) error {
	if !a.IsPrivileged() {
		return fmt.Errorf("%w: %s requires cashier or cleaner, got %s", ErrNotPermitted, op, a.Role)
	}
	return nil
}
