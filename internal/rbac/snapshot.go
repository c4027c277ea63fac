package rbac

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Snapshot is an immutable view of the role registry and assignment store.
// Decisions read a snapshot without locking; administrative mutations build
// a fresh snapshot and swap it in atomically, so a reader never observes a
// half-applied grant or revoke.
type Snapshot struct {
	catalog     *Catalog
	roles       map[int64]Role
	rolesByName map[string]int64
	rolePerms   map[int64]map[Permission]struct{}
	assignments map[int64][]RoleAssignment
	byRole      map[int64][]int64
	fullGrant   map[int64]bool
}

// NewSnapshot assembles a snapshot from already-loaded registry data.
// Grants referencing unknown roles are dropped; a role whose permission set
// covers the entire catalog is marked as a full grant (admin override).
func NewSnapshot(catalog *Catalog, roles []Role, grants map[int64][]Permission, assignments []RoleAssignment) *Snapshot {
	s := &Snapshot{
		catalog:     catalog,
		roles:       make(map[int64]Role, len(roles)),
		rolesByName: make(map[string]int64, len(roles)),
		rolePerms:   make(map[int64]map[Permission]struct{}, len(roles)),
		assignments: make(map[int64][]RoleAssignment),
		byRole:      make(map[int64][]int64),
		fullGrant:   make(map[int64]bool),
	}
	for _, role := range roles {
		s.roles[role.ID] = role
		s.rolesByName[strings.ToLower(role.Name)] = role.ID
	}
	for roleID, perms := range grants {
		if _, ok := s.roles[roleID]; !ok {
			continue
		}
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			if catalog.Contains(p) {
				set[p] = struct{}{}
			}
		}
		s.rolePerms[roleID] = set
		if catalog.Size() > 0 && len(set) == catalog.Size() {
			s.fullGrant[roleID] = true
		}
	}
	for _, a := range assignments {
		if _, ok := s.roles[a.RoleID]; !ok {
			continue
		}
		s.assignments[a.PrincipalID] = append(s.assignments[a.PrincipalID], a)
		if a.Active {
			s.byRole[a.RoleID] = append(s.byRole[a.RoleID], a.PrincipalID)
		}
	}
	return s
}

// Catalog returns the permission catalog backing this snapshot.
func (s *Snapshot) Catalog() *Catalog {
	return s.catalog
}

// Role looks up a role by name, case-insensitively.
func (s *Snapshot) Role(name string) (Role, bool) {
	id, ok := s.rolesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Role{}, false
	}
	return s.roles[id], true
}

// RoleByID looks up a role by its identifier.
func (s *Snapshot) RoleByID(id int64) (Role, bool) {
	role, ok := s.roles[id]
	return role, ok
}

// PermissionsOf returns the permissions attached to an active role. Inactive
// and unknown roles yield an empty set.
func (s *Snapshot) PermissionsOf(roleID int64) []Permission {
	role, ok := s.roles[roleID]
	if !ok || !role.Active {
		return nil
	}
	set := s.rolePerms[roleID]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// RolesOf returns the active roles the principal is actively assigned to.
func (s *Snapshot) RolesOf(principalID int64) []Role {
	var out []Role
	for _, a := range s.assignments[principalID] {
		if !a.Active {
			continue
		}
		role, ok := s.roles[a.RoleID]
		if !ok || !role.Active {
			continue
		}
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PrincipalsWithRole returns principals actively assigned to the role.
// Administrative listing only, never on the decision path.
func (s *Snapshot) PrincipalsWithRole(roleID int64) []int64 {
	ids := append([]int64(nil), s.byRole[roleID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// granted reports whether the union of the principal's active roles carries
// the permission. Multi-role aggregation is a set union: one active grant
// suffices.
func (s *Snapshot) granted(principalID int64, perm Permission) bool {
	for _, a := range s.assignments[principalID] {
		if !a.Active {
			continue
		}
		role, ok := s.roles[a.RoleID]
		if !ok || !role.Active {
			continue
		}
		if _, ok := s.rolePerms[a.RoleID][perm]; ok {
			return true
		}
	}
	return false
}

// suspendedGrant reports whether the permission would be granted by a role
// the principal holds through a deactivated assignment. Used to distinguish
// a suspended principal from one that was never granted the permission.
func (s *Snapshot) suspendedGrant(principalID int64, perm Permission) bool {
	for _, a := range s.assignments[principalID] {
		if a.Active {
			continue
		}
		role, ok := s.roles[a.RoleID]
		if !ok || !role.Active {
			continue
		}
		if _, ok := s.rolePerms[a.RoleID][perm]; ok {
			return true
		}
	}
	return false
}

// fullGrantFor reports whether the principal holds an active role covering
// the full catalog.
func (s *Snapshot) fullGrantFor(principalID int64) bool {
	for _, a := range s.assignments[principalID] {
		if !a.Active {
			continue
		}
		role, ok := s.roles[a.RoleID]
		if !ok || !role.Active {
			continue
		}
		if s.fullGrant[a.RoleID] {
			return true
		}
	}
	return false
}

// EffectivePermissions returns the deduplicated union of permissions across
// the principal's active roles, in stable order.
func (s *Snapshot) EffectivePermissions(principalID int64) []Permission {
	set := make(map[Permission]struct{})
	for _, role := range s.RolesOf(principalID) {
		for p := range s.rolePerms[role.ID] {
			set[p] = struct{}{}
		}
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// Store publishes the current snapshot to concurrent readers.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store primed with the given snapshot.
func NewStore(snap *Snapshot) *Store {
	s := &Store{}
	if snap != nil {
		s.current.Store(snap)
	}
	return s
}

// Current returns the latest snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap atomically replaces the published snapshot.
func (s *Store) Swap(snap *Snapshot) {
	s.current.Store(snap)
}
