package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoleLookupIsCaseInsensitive(t *testing.T) {
	f := newFixture()
	f.addRole(1, "Nurse", true, "patients:read")
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	role, ok := snap.Role("nurse")
	require.True(t, ok)
	assert.Equal(t, int64(1), role.ID)

	role, ok = snap.Role("  NURSE ")
	require.True(t, ok)
	assert.Equal(t, "Nurse", role.Name)

	_, ok = snap.Role("surgeon")
	assert.False(t, ok)
}

func TestSnapshotPermissionsOfInactiveRoleIsEmpty(t *testing.T) {
	f := newFixture()
	f.addRole(1, "nurse", false, "patients:read")
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	assert.Empty(t, snap.PermissionsOf(1))
	assert.Empty(t, snap.PermissionsOf(999))
}

func TestSnapshotRolesOfSkipsInactive(t *testing.T) {
	f := newFixture()
	f.addRole(1, "nurse", true, "patients:read")
	f.addRole(2, "accountant", false, "billing:read")
	f.addRole(3, "doctor", true, "prescriptions:read")
	f.assign(10, 1, true)
	f.assign(10, 2, true)  // role inactive
	f.assign(10, 3, false) // assignment inactive
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	roles := snap.RolesOf(10)
	require.Len(t, roles, 1)
	assert.Equal(t, "nurse", roles[0].Name)
}

func TestSnapshotEffectivePermissionsDeduplicates(t *testing.T) {
	f := newFixture()
	f.addRole(1, "nurse", true, "patients:read", "patients:update")
	f.addRole(2, "doctor", true, "patients:read", "prescriptions:read")
	f.assign(10, 1, true)
	f.assign(10, 2, true)
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	perms := snap.EffectivePermissions(10)
	assert.Len(t, perms, 3)
}

func TestSnapshotDropsUnknownReferences(t *testing.T) {
	f := newFixture()
	f.addRole(1, "nurse", true, "patients:read")
	f.grants[99] = perms("billing:read")
	f.assignments = append(f.assignments, RoleAssignment{PrincipalID: 10, RoleID: 99, Active: true})
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	assert.Empty(t, snap.RolesOf(10))
	assert.Empty(t, snap.PermissionsOf(99))
}

func TestSnapshotFullGrantRequiresWholeCatalog(t *testing.T) {
	f := newFixture()
	f.addAdminRole(1)
	f.addRole(2, "almost", true)
	all := DefaultCatalog()
	f.grants[2] = all[:len(all)-1]
	f.assign(10, 1, true)
	f.assign(11, 2, true)
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	assert.True(t, snap.fullGrantFor(10))
	assert.False(t, snap.fullGrantFor(11))
}

func TestSnapshotPrincipalsWithRole(t *testing.T) {
	f := newFixture()
	f.addRole(1, "nurse", true, "patients:read")
	f.assign(12, 1, true)
	f.assign(10, 1, true)
	f.assign(11, 1, false)
	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)

	assert.Equal(t, []int64{10, 12}, snap.PrincipalsWithRole(1))
}

func TestStoreSwapIsVisibleToReaders(t *testing.T) {
	f := newFixture()
	f.addRole(1, "nurse", true, "patients:read")
	f.assign(10, 1, true)

	store := NewStore(nil)
	assert.Nil(t, store.Current())

	snap := NewSnapshot(f.catalog, f.roles, f.grants, f.assignments)
	store.Swap(snap)
	assert.Same(t, snap, store.Current())
}
