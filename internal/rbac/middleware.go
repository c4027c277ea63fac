package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridian-his/meridian-his/internal/platform/httpx"
)

// DecisionObserver is notified of every verdict the enforcement point
// produces. Implementations must not block the request path.
type DecisionObserver interface {
	ObserveDecision(ctx context.Context, principal Principal, resource string, action Action, decision Decision)
}

// Middleware is the enforcement point in front of protected handlers. It
// translates DENY into a uniform 403 regardless of reason and reports the
// specific reason to observers for audit.
type Middleware struct {
	Engine    *Engine
	Logger    *slog.Logger
	Observers []DecisionObserver
}

// Require guards a route with a coarse (resource, action) check. Record
// scoping happens inside handlers via Authorize or FilterAllowed.
func (m Middleware) Require(resource string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			decision := m.Engine.Decide(principal, resource, action, nil)
			m.observe(r.Context(), principal, resource, action, decision)
			if !decision.Allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize runs a record-level check from inside a handler. The verdict is
// observed either way; callers map a deny to the transport response.
func (m Middleware) Authorize(ctx context.Context, resource string, action Action, record any) Decision {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return Deny(ReasonNoGrant)
	}
	decision := m.Engine.Decide(principal, resource, action, record)
	m.observe(ctx, principal, resource, action, decision)
	return decision
}

func (m Middleware) observe(ctx context.Context, principal Principal, resource string, action Action, decision Decision) {
	if !decision.Allowed && m.Logger != nil {
		m.Logger.Info("authorization denied",
			slog.Int64("principal", principal.ID),
			slog.String("resource", resource),
			slog.String("action", string(action)),
			slog.String("reason", string(decision.Reason)),
		)
	}
	for _, o := range m.Observers {
		if o != nil {
			o.ObserveDecision(ctx, principal, resource, action, decision)
		}
	}
}

// FilterAllowed narrows a result set to rows the principal may see. The
// engine never filters collections itself; the enforcement point applies
// the same scope rule to each candidate row before it is returned.
func FilterAllowed[T any](engine *Engine, principal Principal, resource string, action Action, records []T) []T {
	out := make([]T, 0, len(records))
	for _, record := range records {
		if engine.Decide(principal, resource, action, record).Allowed {
			out = append(out, record)
		}
	}
	return out
}
