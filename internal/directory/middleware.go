package directory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-his/meridian-his/internal/platform/httpx"
	"github.com/meridian-his/meridian-his/internal/rbac"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// Middleware resolves the session user into a principal view and stores it
// in the request context for the enforcement point.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// LoadPrincipal builds the principal snapshot for authenticated requests.
// Requests without a session user pass through unchanged; downstream guards
// deny them. A lookup fault fails closed rather than authorizing blind.
func (m Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		raw := strings.TrimSpace(sess.User())
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("directory parse user id", slog.String("value", raw))
			}
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Service.PrincipalView(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("directory load principal", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(r.Context(), principal)))
	})
}
