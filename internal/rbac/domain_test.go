package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("patients:read")
	require.NoError(t, err)
	assert.Equal(t, Permission{Resource: "patients", Action: ActionRead}, p)
	assert.Equal(t, "patients:read", p.String())

	p, err = ParsePermission("  Medical_Records:UPDATE ")
	require.NoError(t, err)
	assert.Equal(t, Permission{Resource: "medical_records", Action: ActionUpdate}, p)

	for _, raw := range []string{"", "patients", ":read", "patients:fly"} {
		_, err := ParsePermission(raw)
		assert.Error(t, err, "expected error for %q", raw)
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("Delete")
	require.NoError(t, err)
	assert.Equal(t, ActionDelete, a)

	_, err = ParseAction("browse")
	assert.Error(t, err)
	assert.False(t, Action("browse").Valid())
}

func TestCatalogUniquePairs(t *testing.T) {
	c := NewCatalog(map[Permission]int64{
		{Resource: "patients", Action: ActionRead}: 1,
	})
	assert.True(t, c.Contains(Permission{Resource: "patients", Action: ActionRead}))
	assert.False(t, c.Contains(Permission{Resource: "patients", Action: ActionDelete}))
	assert.Equal(t, 1, c.Size())

	id, ok := c.ID(Permission{Resource: "patients", Action: ActionRead})
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
}

func TestDefaultCatalogCoversAllResources(t *testing.T) {
	all := DefaultCatalog()
	assert.Len(t, all, len(DefaultResources())*len(Actions()))

	seen := make(map[Permission]struct{}, len(all))
	for _, p := range all {
		_, dup := seen[p]
		assert.False(t, dup, "duplicate pair %s", p)
		seen[p] = struct{}{}
	}
}

func TestDefaultRolesStayInsideCatalog(t *testing.T) {
	catalog := make(map[Permission]struct{})
	for _, p := range DefaultCatalog() {
		catalog[p] = struct{}{}
	}
	for _, seed := range DefaultRoles(DefaultCatalog()) {
		for _, p := range seed.Permissions {
			_, ok := catalog[p]
			assert.True(t, ok, "role %s references %s outside the catalog", seed.Name, p)
		}
	}
}
