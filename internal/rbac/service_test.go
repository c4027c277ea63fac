package rbac

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assignmentKey struct {
	principalID int64
	roleID      int64
}

type mockRepository struct {
	catalog     map[Permission]int64
	roles       map[int64]Role
	grants      map[int64]map[int64]struct{}
	assignments map[assignmentKey]RoleAssignment
	nextRoleID  int64
	nextPermID  int64
	loadCount   int
}

func newMockRepository() *mockRepository {
	m := &mockRepository{
		catalog:     make(map[Permission]int64),
		roles:       make(map[int64]Role),
		grants:      make(map[int64]map[int64]struct{}),
		assignments: make(map[assignmentKey]RoleAssignment),
		nextRoleID:  1,
		nextPermID:  1,
	}
	for _, p := range DefaultCatalog() {
		m.catalog[p] = m.nextPermID
		m.nextPermID++
	}
	return m
}

func (m *mockRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	m.loadCount++
	permsByID := make(map[int64]Permission, len(m.catalog))
	for p, id := range m.catalog {
		permsByID[id] = p
	}
	var roles []Role
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	grants := make(map[int64][]Permission)
	for roleID, set := range m.grants {
		for permID := range set {
			grants[roleID] = append(grants[roleID], permsByID[permID])
		}
	}
	var assignments []RoleAssignment
	for _, a := range m.assignments {
		assignments = append(assignments, a)
	}
	return NewSnapshot(NewCatalog(m.catalog), roles, grants, assignments), nil
}

func (m *mockRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	for _, role := range m.roles {
		if strings.EqualFold(role.Name, name) {
			return Role{}, ErrDuplicateRole
		}
	}
	role := Role{ID: m.nextRoleID, Name: name, Description: description, Active: true, CreatedAt: time.Now()}
	m.roles[role.ID] = role
	m.nextRoleID++
	return role, nil
}

func (m *mockRepository) SetRoleActive(ctx context.Context, roleID int64, active bool) error {
	role, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	role.Active = active
	m.roles[roleID] = role
	return nil
}

func (m *mockRepository) EnsurePermission(ctx context.Context, perm Permission) (int64, error) {
	if id, ok := m.catalog[perm]; ok {
		return id, nil
	}
	id := m.nextPermID
	m.nextPermID++
	m.catalog[perm] = id
	return id, nil
}

func (m *mockRepository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	if m.grants[roleID] == nil {
		m.grants[roleID] = make(map[int64]struct{})
	}
	m.grants[roleID][permissionID] = struct{}{}
	return nil
}

func (m *mockRepository) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	delete(m.grants[roleID], permissionID)
	return nil
}

func (m *mockRepository) AssignRole(ctx context.Context, principalID, roleID, assignedBy int64) error {
	key := assignmentKey{principalID: principalID, roleID: roleID}
	if a, ok := m.assignments[key]; ok {
		a.Active = true
		m.assignments[key] = a
		return nil
	}
	m.assignments[key] = RoleAssignment{
		PrincipalID: principalID,
		RoleID:      roleID,
		AssignedAt:  time.Now(),
		AssignedBy:  assignedBy,
		Active:      true,
	}
	return nil
}

func (m *mockRepository) UnassignRole(ctx context.Context, principalID, roleID int64) error {
	key := assignmentKey{principalID: principalID, roleID: roleID}
	if a, ok := m.assignments[key]; ok {
		a.Active = false
		m.assignments[key] = a
	}
	return nil
}

var _ Repository = (*mockRepository)(nil)

type mockNotifier struct {
	calls int
}

func (m *mockNotifier) NotifyReload(ctx context.Context) error {
	m.calls++
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, *mockNotifier, *Store) {
	t.Helper()
	repo := newMockRepository()
	store := NewStore(nil)
	notifier := &mockNotifier{}
	svc := NewService(repo, store, notifier, slog.Default())
	require.NoError(t, svc.Reload(context.Background()))
	return svc, repo, notifier, store
}

func TestServiceCreateRoleDuplicate(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "Nurse", "ward staff")
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.calls)

	_, err = svc.CreateRole(ctx, "nurse", "duplicate in other casing")
	assert.ErrorIs(t, err, ErrDuplicateRole)

	_, err = svc.CreateRole(ctx, "  ", "")
	assert.Error(t, err)
}

func TestServiceGrantRevokeRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "nurse", "")
	require.NoError(t, err)

	perm := Permission{Resource: "patients", Action: ActionRead}
	require.NoError(t, svc.GrantPermission(ctx, "nurse", perm))
	require.NoError(t, svc.GrantPermission(ctx, "nurse", perm)) // idempotent
	assert.Len(t, svc.PermissionsOf(ctx, "nurse"), 1)

	require.NoError(t, svc.RevokePermission(ctx, "nurse", perm))
	require.NoError(t, svc.RevokePermission(ctx, "nurse", perm)) // idempotent
	assert.Empty(t, svc.PermissionsOf(ctx, "nurse"))
}

func TestServiceGrantUnknownReferences(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	perm := Permission{Resource: "patients", Action: ActionRead}
	assert.ErrorIs(t, svc.GrantPermission(ctx, "ghost", perm), ErrUnknownRole)

	_, err := svc.CreateRole(ctx, "nurse", "")
	require.NoError(t, err)
	bogus := Permission{Resource: "helipads", Action: ActionRead}
	assert.ErrorIs(t, svc.GrantPermission(ctx, "nurse", bogus), ErrUnknownPermission)
}

func TestServiceAssignIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "nurse", "")
	require.NoError(t, err)

	require.NoError(t, svc.Assign(ctx, 10, "nurse", 1))
	require.NoError(t, svc.Assign(ctx, 10, "nurse", 1))
	assert.Len(t, svc.RolesOf(ctx, 10), 1)

	principals, err := svc.PrincipalsWithRole(ctx, "nurse")
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, principals)
}

func TestServiceUnassignKeepsHistory(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "nurse", "")
	require.NoError(t, err)
	require.NoError(t, svc.Assign(ctx, 10, "nurse", 1))
	require.NoError(t, svc.Unassign(ctx, 10, "nurse"))

	assert.Empty(t, svc.RolesOf(ctx, 10))
	// The assignment row survives, just deactivated.
	a, ok := repo.assignments[assignmentKey{principalID: 10, roleID: 1}]
	require.True(t, ok)
	assert.False(t, a.Active)

	// Reassigning reactivates the same pair.
	require.NoError(t, svc.Assign(ctx, 10, "nurse", 2))
	assert.Len(t, svc.RolesOf(ctx, 10), 1)
}

func TestServiceDeactivateRoleStopsGranting(t *testing.T) {
	svc, _, _, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "nurse", "")
	require.NoError(t, err)
	require.NoError(t, svc.GrantPermission(ctx, "nurse", Permission{Resource: "patients", Action: ActionRead}))
	require.NoError(t, svc.Assign(ctx, 10, "nurse", 1))

	eng := NewEngine(store, nil)
	require.True(t, eng.Decide(Principal{ID: 10}, "patients", ActionRead, nil).Allowed)

	require.NoError(t, svc.SetRoleActive(ctx, "nurse", false))
	d := eng.Decide(Principal{ID: 10}, "patients", ActionRead, nil)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonNoGrant, d.Reason)

	// Assignments survive a deactivate/reactivate cycle.
	require.NoError(t, svc.SetRoleActive(ctx, "nurse", true))
	assert.True(t, eng.Decide(Principal{ID: 10}, "patients", ActionRead, nil).Allowed)
}

func TestServiceSetRoleActiveUnknown(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.SetRoleActive(context.Background(), "ghost", false), ErrUnknownRole)
}

func TestServiceListRolesOrdersCaseInsensitively(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Zed", "admin", "Nurse"} {
		_, err := svc.CreateRole(ctx, name, "")
		require.NoError(t, err)
	}
	roles := svc.ListRoles(ctx)
	require.Len(t, roles, 3)
	assert.Equal(t, "admin", roles[0].Name)
	assert.Equal(t, "Nurse", roles[1].Name)
	assert.Equal(t, "Zed", roles[2].Name)
}

func TestServiceEnsurePermissionExtendsCatalog(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	before := len(svc.Catalog())
	perm := Permission{Resource: "laboratory", Action: ActionRead}
	require.NoError(t, svc.EnsurePermission(ctx, perm))
	require.NoError(t, svc.EnsurePermission(ctx, perm)) // idempotent
	assert.Len(t, svc.Catalog(), before+1)

	assert.ErrorIs(t, svc.EnsurePermission(ctx, Permission{Resource: "", Action: ActionRead}), ErrUnknownPermission)
	assert.ErrorIs(t, svc.EnsurePermission(ctx, Permission{Resource: "laboratory", Action: "audit"}), ErrUnknownPermission)
}
