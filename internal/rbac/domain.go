package rbac

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Administrative errors surfaced to callers managing roles.
var (
	ErrNotFound          = errors.New("rbac: not found")
	ErrDuplicateRole     = errors.New("rbac: duplicate role")
	ErrUnknownRole       = errors.New("rbac: unknown role")
	ErrUnknownPermission = errors.New("rbac: unknown permission")
)

// Action is one of the four operations a permission can cover.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the recognised actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParseAction normalizes and validates an action string.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if !a.Valid() {
		return "", fmt.Errorf("rbac: invalid action %q", raw)
	}
	return a, nil
}

// Permission identifies one (resource, action) capability, e.g. patients:read.
type Permission struct {
	Resource string
	Action   Action
}

// String renders the canonical resource:action form.
func (p Permission) String() string {
	return p.Resource + ":" + string(p.Action)
}

// ParsePermission parses the resource:action form.
func ParsePermission(raw string) (Permission, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Permission{}, fmt.Errorf("rbac: invalid permission %q", raw)
	}
	resource = strings.ToLower(strings.TrimSpace(resource))
	if resource == "" {
		return Permission{}, fmt.Errorf("rbac: invalid permission %q", raw)
	}
	a, err := ParseAction(action)
	if err != nil {
		return Permission{}, err
	}
	return Permission{Resource: resource, Action: a}, nil
}

// Role represents a named grouping of permissions. An inactive role grants
// nothing regardless of assignments.
type Role struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleAssignment links a principal to a role. AssignedBy is audit metadata
// and never participates in decisions.
type RoleAssignment struct {
	PrincipalID int64
	RoleID      int64
	AssignedAt  time.Time
	AssignedBy  int64
	Active      bool
}

// Principal is the read-only view of the authenticated actor the engine and
// scope rules consume. The caller loads it before any decision is made.
type Principal struct {
	ID         int64
	Department string
	// Patients holds subject IDs the principal has an active care
	// relationship with (clinicians only).
	Patients map[int64]struct{}
}

// InCareOf reports whether the principal has an active care relationship
// with the given subject.
func (p Principal) InCareOf(subjectID int64) bool {
	_, ok := p.Patients[subjectID]
	return ok
}

// Reason explains a DENY verdict.
type Reason string

const (
	ReasonNoGrant        Reason = "no_grant"
	ReasonScopeViolation Reason = "scope_violation"
	ReasonRoleInactive   Reason = "role_inactive"
)

// Decision is the verdict for one (principal, resource, action, record) tuple.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the positive verdict.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a negative verdict with the given reason.
func Deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
