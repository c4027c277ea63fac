package rbac

import "strings"

// Rule is a pure record-level predicate narrowing a coarse grant. Rules must
// not perform I/O; everything they need is on the principal view and the
// already-loaded record.
type Rule func(principal Principal, record any) bool

// SubjectRecord is implemented by records owned by a single subject, e.g. a
// patient row or an appointment belonging to a patient.
type SubjectRecord interface {
	SubjectID() int64
}

// DepartmentRecord is implemented by records that belong to a department,
// e.g. staff and rooms.
type DepartmentRecord interface {
	Department() string
}

// SelfOwned passes when the record's subject is the principal itself.
func SelfOwned(principal Principal, record any) bool {
	sr, ok := record.(SubjectRecord)
	if !ok || principal.ID == 0 {
		return false
	}
	return sr.SubjectID() == principal.ID
}

// AssignedCare passes when the principal has an active care relationship
// with the record's subject.
func AssignedCare(principal Principal, record any) bool {
	sr, ok := record.(SubjectRecord)
	if !ok {
		return false
	}
	return principal.InCareOf(sr.SubjectID())
}

// SameDepartment passes when the record and the principal share a
// department. Empty departments on either side never match.
func SameDepartment(principal Principal, record any) bool {
	dr, ok := record.(DepartmentRecord)
	if !ok {
		return false
	}
	dept := strings.TrimSpace(dr.Department())
	if dept == "" || principal.Department == "" {
		return false
	}
	return strings.EqualFold(dept, principal.Department)
}

// AnyOf combines rules with OR semantics.
func AnyOf(rules ...Rule) Rule {
	return func(principal Principal, record any) bool {
		for _, rule := range rules {
			if rule != nil && rule(principal, record) {
				return true
			}
		}
		return false
	}
}

type ruleKey struct {
	resource string
	action   Action
}

// Resolver holds scope rules keyed by (resource, action) with a per-resource
// default fallback. A resource with no registered rule leaves the coarse
// grant final.
type Resolver struct {
	rules map[ruleKey]Rule
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{rules: make(map[ruleKey]Rule)}
}

// Register attaches a rule to one (resource, action) pair.
func (r *Resolver) Register(resource string, action Action, rule Rule) {
	if rule == nil {
		return
	}
	r.rules[ruleKey{resource: strings.ToLower(strings.TrimSpace(resource)), action: action}] = rule
}

// RegisterResource attaches a resource-level default rule applying to every
// action without a more specific rule.
func (r *Resolver) RegisterResource(resource string, rule Rule) {
	r.Register(resource, "", rule)
}

// Lookup finds the rule for a permission: exact (resource, action) first,
// then the resource default.
func (r *Resolver) Lookup(perm Permission) (Rule, bool) {
	if r == nil {
		return nil, false
	}
	if rule, ok := r.rules[ruleKey{resource: perm.Resource, action: perm.Action}]; ok {
		return rule, true
	}
	rule, ok := r.rules[ruleKey{resource: perm.Resource}]
	return rule, ok
}

// Evaluate runs the registered rule for the permission against the record.
// No registered rule means no extra scoping (true). Any evaluation fault
// resolves to false: scoping fails closed, never open.
func (r *Resolver) Evaluate(perm Permission, principal Principal, record any) bool {
	rule, ok := r.Lookup(perm)
	if !ok {
		return true
	}
	return evalRule(rule, principal, record)
}

func evalRule(rule Rule, principal Principal, record any) (verdict bool) {
	defer func() {
		if recover() != nil {
			verdict = false
		}
	}()
	if rule == nil || record == nil {
		return false
	}
	return rule(principal, record)
}

// DefaultResolver wires the hospital scope policy: clinical and billing rows
// are visible to their own patient or an assigned clinician, staff and rooms
// are department-scoped. The patients collection itself carries no rule so
// ward staff with a coarse grant can work any patient row.
func DefaultResolver() *Resolver {
	r := NewResolver()
	clinical := AnyOf(SelfOwned, AssignedCare)
	for _, resource := range []string{"appointments", "medical_records", "prescriptions", "billing"} {
		r.RegisterResource(resource, clinical)
	}
	r.RegisterResource("staff", SameDepartment)
	r.RegisterResource("rooms", SameDepartment)
	return r
}
