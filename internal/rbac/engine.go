package rbac

import "strings"

// Engine answers "can this principal perform this action on this resource,
// optionally scoped to this record". It is a pure function over the current
// snapshot and never blocks, panics, or performs I/O.
type Engine struct {
	store    *Store
	resolver *Resolver
}

// NewEngine builds an engine over the snapshot store and scope resolver.
// A nil resolver disables record-level scoping entirely.
func NewEngine(store *Store, resolver *Resolver) *Engine {
	return &Engine{store: store, resolver: resolver}
}

// Decide evaluates one authorization request.
//
// The effective permission set is the union of the principal's active roles;
// a missing coarse grant denies immediately without consulting scope rules.
// A role covering the full catalog short-circuits to ALLOW for any record.
// Otherwise a registered scope rule narrows the grant to eligible records,
// and a request without a record passes on the coarse grant alone (per-row
// filtering of collections is the enforcement point's job).
func (e *Engine) Decide(principal Principal, resource string, action Action, record any) Decision {
	snap := e.store.Current()
	if snap == nil {
		return Deny(ReasonNoGrant)
	}
	perm := Permission{Resource: strings.ToLower(strings.TrimSpace(resource)), Action: action}
	if perm.Resource == "" || !action.Valid() || !snap.catalog.Contains(perm) {
		return Deny(ReasonNoGrant)
	}
	if !snap.granted(principal.ID, perm) {
		if snap.suspendedGrant(principal.ID, perm) {
			return Deny(ReasonRoleInactive)
		}
		return Deny(ReasonNoGrant)
	}
	if snap.fullGrantFor(principal.ID) {
		return Allow()
	}
	if record != nil && e.resolver != nil {
		if rule, ok := e.resolver.Lookup(perm); ok {
			if !evalRule(rule, principal, record) {
				return Deny(ReasonScopeViolation)
			}
		}
	}
	return Allow()
}

// DecideRecord is Decide for callers that already hold a typed record and
// want nil-interface pitfalls handled for them.
func (e *Engine) DecideRecord(principal Principal, resource string, action Action, record SubjectRecord) Decision {
	if record == nil {
		return e.Decide(principal, resource, action, nil)
	}
	return e.Decide(principal, resource, action, record)
}

// Snapshot exposes the current registry snapshot for administrative reads.
func (e *Engine) Snapshot() *Snapshot {
	return e.store.Current()
}
