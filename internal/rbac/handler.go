package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-his/meridian-his/internal/platform/httpx"
)

// Handler exposes the administrative surface as a JSON API. None of these
// endpoints sit on the decision hot path.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	guard     Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), guard: guard}
}

// MountRoutes registers administration routes. Role and assignment
// management rides on the staff resource grants.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("staff", ActionRead))
		r.Get("/permissions", h.listPermissions)
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{name}", h.getRole)
		r.Get("/roles/{name}/principals", h.listPrincipals)
		r.Get("/principals/{id}/roles", h.rolesOfPrincipal)
		r.Get("/principals/{id}/permissions", h.permissionsOfPrincipal)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("staff", ActionCreate))
		r.Post("/roles", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("staff", ActionUpdate))
		r.Post("/roles/{name}/activate", h.setActive(true))
		r.Post("/roles/{name}/deactivate", h.setActive(false))
		r.Post("/roles/{name}/grants", h.grant)
		r.Delete("/roles/{name}/grants", h.revoke)
		r.Post("/principals/{id}/roles", h.assign)
		r.Delete("/principals/{id}/roles/{name}", h.unassign)
	})
}

type roleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	Permissions []string  `json:"permissions,omitempty"`
}

func toRoleResponse(role Role, perms []Permission) roleResponse {
	resp := roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Active:      role.Active,
		CreatedAt:   role.CreatedAt,
	}
	for _, p := range perms {
		resp.Permissions = append(resp.Permissions, p.String())
	}
	return resp
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms := h.service.Catalog()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": out})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.service.ListRoles(r.Context())
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	role, err := h.service.GetRole(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	perms := h.service.PermissionsOf(r.Context(), role.Name)
	httpx.JSON(w, http.StatusOK, toRoleResponse(role, perms))
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role, nil))
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := h.service.SetRoleActive(r.Context(), name, active); err != nil {
			h.respondError(w, err)
			return
		}
		httpx.NoContent(w)
	}
}

type grantRequest struct {
	Permission string `json:"permission" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, h.service.GrantPermission)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, h.service.RevokePermission)
}

func (h *Handler) changeGrant(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, roleName string, perm Permission) error) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := ParsePermission(req.Permission)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := apply(r.Context(), chi.URLParam(r, "name"), perm); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type assignRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	principalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid principal id")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var assignedBy int64
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		assignedBy = principal.ID
	}
	if err := h.service.Assign(r.Context(), principalID, req.Role, assignedBy); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	principalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid principal id")
		return
	}
	if err := h.service.Unassign(r.Context(), principalID, chi.URLParam(r, "name")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listPrincipals(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.PrincipalsWithRole(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"principals": ids})
}

func (h *Handler) rolesOfPrincipal(w http.ResponseWriter, r *http.Request) {
	principalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid principal id")
		return
	}
	roles := h.service.RolesOf(r.Context(), principalID)
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) permissionsOfPrincipal(w http.ResponseWriter, r *http.Request) {
	principalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid principal id")
		return
	}
	snap := h.service.snapshot()
	if snap == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"permissions": []string{}})
		return
	}
	perms := snap.EffectivePermissions(principalID)
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": out})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateRole):
		httpx.Problem(w, http.StatusConflict, "Duplicate Role", "a role with this name already exists")
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
	case errors.Is(err, ErrUnknownPermission):
		httpx.Problem(w, http.StatusBadRequest, "Unknown Permission", "permission is not part of the catalog")
	default:
		if h.logger != nil {
			h.logger.Error("rbac admin", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
