package rbac

import "sort"

// Catalog is the administered set of permissions the system recognises.
// (resource, action) pairs are unique; resources form an open string set.
type Catalog struct {
	perms map[Permission]int64
}

// NewCatalog builds a catalog from permission IDs keyed by permission.
func NewCatalog(perms map[Permission]int64) *Catalog {
	c := &Catalog{perms: make(map[Permission]int64, len(perms))}
	for p, id := range perms {
		c.perms[p] = id
	}
	return c
}

// Contains reports whether the permission is part of the catalog.
func (c *Catalog) Contains(p Permission) bool {
	if c == nil {
		return false
	}
	_, ok := c.perms[p]
	return ok
}

// ID returns the storage identifier of a catalog permission.
func (c *Catalog) ID(p Permission) (int64, bool) {
	if c == nil {
		return 0, false
	}
	id, ok := c.perms[p]
	return id, ok
}

// Size returns the number of catalog permissions.
func (c *Catalog) Size() int {
	if c == nil {
		return 0
	}
	return len(c.perms)
}

// Permissions returns all catalog permissions in stable order.
func (c *Catalog) Permissions() []Permission {
	if c == nil {
		return nil
	}
	out := make([]Permission, 0, len(c.perms))
	for p := range c.perms {
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

// DefaultResources lists the hospital resources seeded into a fresh catalog.
func DefaultResources() []string {
	return []string{
		"patients",
		"appointments",
		"medical_records",
		"prescriptions",
		"pharmacy",
		"billing",
		"staff",
		"rooms",
		"ambulances",
		"reports",
	}
}

// Actions lists every recognised action.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}
