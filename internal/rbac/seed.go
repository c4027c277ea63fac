package rbac

// RoleSeed describes one role created at provisioning time.
type RoleSeed struct {
	Name        string
	Description string
	Permissions []Permission
}

func perms(pairs ...string) []Permission {
	out := make([]Permission, 0, len(pairs))
	for _, raw := range pairs {
		p, err := ParsePermission(raw)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DefaultRoles returns the hospital roles seeded into a fresh install.
// The admin role carries every catalog permission by enumeration; there is
// no wildcard bit.
func DefaultRoles(catalog []Permission) []RoleSeed {
	return []RoleSeed{
		{
			Name:        "admin",
			Description: "Full access to every resource",
			Permissions: catalog,
		},
		{
			Name:        "doctor",
			Description: "Clinical staff with full charting access",
			Permissions: perms(
				"patients:read", "patients:update",
				"appointments:read", "appointments:update",
				"medical_records:create", "medical_records:read", "medical_records:update",
				"prescriptions:create", "prescriptions:read", "prescriptions:update",
				"rooms:read",
				"reports:read",
			),
		},
		{
			Name:        "nurse",
			Description: "Ward staff charting under supervision",
			Permissions: perms(
				"patients:read", "patients:update",
				"appointments:read", "appointments:update",
				"medical_records:read", "medical_records:update",
			),
		},
		{
			Name:        "receptionist",
			Description: "Front desk scheduling and intake",
			Permissions: perms(
				"patients:create", "patients:read", "patients:update",
				"appointments:create", "appointments:read", "appointments:update", "appointments:delete",
				"rooms:read",
				"ambulances:read",
			),
		},
		{
			Name:        "pharmacist",
			Description: "Pharmacy stock and dispensing",
			Permissions: perms(
				"prescriptions:read", "prescriptions:update",
				"pharmacy:create", "pharmacy:read", "pharmacy:update", "pharmacy:delete",
			),
		},
		{
			Name:        "accountant",
			Description: "Billing and financial reporting",
			Permissions: perms(
				"billing:create", "billing:read", "billing:update", "billing:delete",
				"reports:read",
			),
		},
		{
			Name:        "patient",
			Description: "Portal access to own records",
			Permissions: perms(
				"patients:read",
				"appointments:create", "appointments:read",
				"prescriptions:read",
				"billing:read",
			),
		},
	}
}

// DefaultCatalog enumerates every (resource, action) pair of a fresh
// install: the hospital resources crossed with the four actions.
func DefaultCatalog() []Permission {
	var out []Permission
	for _, resource := range DefaultResources() {
		for _, action := range Actions() {
			out = append(out, Permission{Resource: resource, Action: action})
		}
	}
	return out
}
