package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ReloadNotifier fans a registry-changed signal out to other instances so
// they refresh their snapshots.
type ReloadNotifier interface {
	NotifyReload(ctx context.Context) error
}

// Service is the administrative surface over the registry and assignment
// store. Every mutation persists first, then rebuilds and swaps the snapshot
// so concurrent decisions keep reading a consistent view.
type Service struct {
	repo     Repository
	store    *Store
	notifier ReloadNotifier
	logger   *slog.Logger
	reloads  singleflight.Group
	collator *collate.Collator
}

// NewService constructs the administrative service.
func NewService(repo Repository, store *Store, notifier ReloadNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		notifier: notifier,
		logger:   logger,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// Reload rebuilds the published snapshot from storage. Concurrent callers
// share a single load.
func (s *Service) Reload(ctx context.Context) error {
	_, err, _ := s.reloads.Do("reload", func() (any, error) {
		snap, err := s.repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("rbac: load snapshot: %w", err)
		}
		s.store.Swap(snap)
		return nil, nil
	})
	return err
}

func (s *Service) snapshot() *Snapshot {
	return s.store.Current()
}

// mutated reloads the snapshot and notifies peers after a successful write.
func (s *Service) mutated(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyReload(ctx); err != nil && s.logger != nil {
			s.logger.Warn("rbac reload notify", slog.Any("error", err))
		}
	}
	return nil
}

// Catalog returns every permission the system recognises.
func (s *Service) Catalog() []Permission {
	snap := s.snapshot()
	if snap == nil {
		return nil
	}
	return snap.Catalog().Permissions()
}

// GetRole fetches a role by name, case-insensitively.
func (s *Service) GetRole(ctx context.Context, name string) (Role, error) {
	snap := s.snapshot()
	if snap == nil {
		return Role{}, ErrNotFound
	}
	role, ok := snap.Role(name)
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

// ListRoles returns all roles ordered by name, case-insensitively.
func (s *Service) ListRoles(ctx context.Context) []Role {
	snap := s.snapshot()
	if snap == nil {
		return nil
	}
	roles := make([]Role, 0, len(snap.roles))
	for _, role := range snap.roles {
		roles = append(roles, role)
	}
	s.collator.Sort(roleSorter(roles))
	return roles
}

// PermissionsOf returns the permissions attached to an active role; an
// inactive or unknown role yields an empty set.
func (s *Service) PermissionsOf(ctx context.Context, roleName string) []Permission {
	snap := s.snapshot()
	if snap == nil {
		return nil
	}
	role, ok := snap.Role(roleName)
	if !ok {
		return nil
	}
	return snap.PermissionsOf(role.ID)
}

// CreateRole inserts a new role, failing with ErrDuplicateRole when the
// name is already taken in any casing.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("rbac: role name required")
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	if err := s.mutated(ctx); err != nil {
		return Role{}, err
	}
	return role, nil
}

// SetRoleActive soft-enables or soft-disables a role. Assignments persist
// either way.
func (s *Service) SetRoleActive(ctx context.Context, roleName string, active bool) error {
	role, err := s.GetRole(ctx, roleName)
	if err != nil {
		return ErrUnknownRole
	}
	if err := s.repo.SetRoleActive(ctx, role.ID, active); err != nil {
		return err
	}
	return s.mutated(ctx)
}

// GrantPermission attaches a catalog permission to a role. Idempotent.
func (s *Service) GrantPermission(ctx context.Context, roleName string, perm Permission) error {
	snap := s.snapshot()
	if snap == nil {
		return ErrUnknownRole
	}
	role, ok := snap.Role(roleName)
	if !ok {
		return ErrUnknownRole
	}
	permID, ok := snap.Catalog().ID(perm)
	if !ok {
		return ErrUnknownPermission
	}
	if err := s.repo.GrantPermission(ctx, role.ID, permID); err != nil {
		return err
	}
	return s.mutated(ctx)
}

// RevokePermission detaches a catalog permission from a role. Idempotent.
func (s *Service) RevokePermission(ctx context.Context, roleName string, perm Permission) error {
	snap := s.snapshot()
	if snap == nil {
		return ErrUnknownRole
	}
	role, ok := snap.Role(roleName)
	if !ok {
		return ErrUnknownRole
	}
	permID, ok := snap.Catalog().ID(perm)
	if !ok {
		return ErrUnknownPermission
	}
	if err := s.repo.RevokePermission(ctx, role.ID, permID); err != nil {
		return err
	}
	return s.mutated(ctx)
}

// EnsurePermission adds a permission to the catalog if missing. Permissions
// are immutable once referenced; there is no removal operation.
func (s *Service) EnsurePermission(ctx context.Context, perm Permission) error {
	if perm.Resource == "" || !perm.Action.Valid() {
		return ErrUnknownPermission
	}
	if _, err := s.repo.EnsurePermission(ctx, perm); err != nil {
		return err
	}
	return s.mutated(ctx)
}

// Assign links a principal to a role. Re-assigning is idempotent and
// reactivates a previously deactivated assignment.
func (s *Service) Assign(ctx context.Context, principalID int64, roleName string, assignedBy int64) error {
	role, err := s.GetRole(ctx, roleName)
	if err != nil {
		return ErrUnknownRole
	}
	if err := s.repo.AssignRole(ctx, principalID, role.ID, assignedBy); err != nil {
		return err
	}
	return s.mutated(ctx)
}

// Unassign deactivates a principal's assignment; the row survives for audit.
func (s *Service) Unassign(ctx context.Context, principalID int64, roleName string) error {
	role, err := s.GetRole(ctx, roleName)
	if err != nil {
		return ErrUnknownRole
	}
	if err := s.repo.UnassignRole(ctx, principalID, role.ID); err != nil {
		return err
	}
	return s.mutated(ctx)
}

// RolesOf returns the principal's active roles.
func (s *Service) RolesOf(ctx context.Context, principalID int64) []Role {
	snap := s.snapshot()
	if snap == nil {
		return nil
	}
	return snap.RolesOf(principalID)
}

// PrincipalsWithRole lists principals actively holding the role.
func (s *Service) PrincipalsWithRole(ctx context.Context, roleName string) ([]int64, error) {
	snap := s.snapshot()
	if snap == nil {
		return nil, ErrUnknownRole
	}
	role, ok := snap.Role(roleName)
	if !ok {
		return nil, ErrUnknownRole
	}
	return snap.PrincipalsWithRole(role.ID), nil
}

type roleSorter []Role

func (r roleSorter) Len() int           { return len(r) }
func (r roleSorter) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r roleSorter) Bytes(i int) []byte { return []byte(r[i].Name) }
