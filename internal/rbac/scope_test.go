package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfOwned(t *testing.T) {
	p := Principal{ID: 7}
	assert.True(t, SelfOwned(p, patientRow{OwnerID: 7}))
	assert.False(t, SelfOwned(p, patientRow{OwnerID: 8}))
	assert.False(t, SelfOwned(p, "not a record"))
	assert.False(t, SelfOwned(Principal{}, patientRow{OwnerID: 0}))
}

func TestAssignedCare(t *testing.T) {
	p := Principal{ID: 7, Patients: map[int64]struct{}{41: {}}}
	assert.True(t, AssignedCare(p, patientRow{OwnerID: 41}))
	assert.False(t, AssignedCare(p, patientRow{OwnerID: 42}))
	assert.False(t, AssignedCare(Principal{ID: 7}, patientRow{OwnerID: 41}))
	assert.False(t, AssignedCare(p, 12345))
}

func TestSameDepartment(t *testing.T) {
	p := Principal{ID: 7, Department: "cardiology"}
	assert.True(t, SameDepartment(p, roomRow{Dept: "cardiology"}))
	assert.True(t, SameDepartment(p, roomRow{Dept: "Cardiology"}))
	assert.False(t, SameDepartment(p, roomRow{Dept: "icu"}))
	assert.False(t, SameDepartment(p, roomRow{}))
	assert.False(t, SameDepartment(Principal{ID: 7}, roomRow{Dept: "cardiology"}))
	assert.False(t, SameDepartment(p, patientRow{OwnerID: 7}))
}

func TestAnyOf(t *testing.T) {
	p := Principal{ID: 7, Patients: map[int64]struct{}{41: {}}}
	rule := AnyOf(SelfOwned, AssignedCare)
	assert.True(t, rule(p, patientRow{OwnerID: 7}))
	assert.True(t, rule(p, patientRow{OwnerID: 41}))
	assert.False(t, rule(p, patientRow{OwnerID: 99}))
	assert.False(t, AnyOf()(p, patientRow{OwnerID: 7}))
}

func TestResolverLookupFallsBackToResourceDefault(t *testing.T) {
	r := NewResolver()
	r.RegisterResource("appointments", AssignedCare)
	r.Register("appointments", ActionDelete, SelfOwned)

	rule, ok := r.Lookup(Permission{Resource: "appointments", Action: ActionDelete})
	require.True(t, ok)
	assert.True(t, rule(Principal{ID: 3}, patientRow{OwnerID: 3}))

	rule, ok = r.Lookup(Permission{Resource: "appointments", Action: ActionRead})
	require.True(t, ok)
	assert.False(t, rule(Principal{ID: 3}, patientRow{OwnerID: 3}))

	_, ok = r.Lookup(Permission{Resource: "patients", Action: ActionRead})
	assert.False(t, ok)
}

func TestResolverEvaluateUnregisteredIsTrue(t *testing.T) {
	r := NewResolver()
	assert.True(t, r.Evaluate(Permission{Resource: "patients", Action: ActionRead}, Principal{ID: 1}, patientRow{OwnerID: 9}))
}

func TestResolverEvaluateFailsClosed(t *testing.T) {
	r := NewResolver()
	r.Register("patients", ActionRead, func(Principal, any) bool {
		panic("boom")
	})
	perm := Permission{Resource: "patients", Action: ActionRead}
	assert.False(t, r.Evaluate(perm, Principal{ID: 1}, patientRow{OwnerID: 1}))

	r2 := NewResolver()
	r2.Register("patients", ActionRead, SelfOwned)
	// nil record never proves eligibility
	assert.False(t, r2.Evaluate(perm, Principal{ID: 1}, nil))
}

func TestDefaultResolverPolicy(t *testing.T) {
	r := DefaultResolver()

	// patients carries no rule at all
	_, ok := r.Lookup(Permission{Resource: "patients", Action: ActionRead})
	assert.False(t, ok)

	clinician := Principal{ID: 2, Patients: map[int64]struct{}{5: {}}}
	assert.True(t, r.Evaluate(Permission{Resource: "prescriptions", Action: ActionRead}, clinician, patientRow{OwnerID: 5}))
	assert.False(t, r.Evaluate(Permission{Resource: "prescriptions", Action: ActionRead}, clinician, patientRow{OwnerID: 6}))

	own := Principal{ID: 5}
	assert.True(t, r.Evaluate(Permission{Resource: "billing", Action: ActionRead}, own, patientRow{OwnerID: 5}))

	staff := Principal{ID: 9, Department: "icu"}
	assert.True(t, r.Evaluate(Permission{Resource: "rooms", Action: ActionRead}, staff, roomRow{Dept: "ICU"}))
	assert.False(t, r.Evaluate(Permission{Resource: "staff", Action: ActionRead}, staff, roomRow{Dept: "cardiology"}))
}
