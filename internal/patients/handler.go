package patients

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-his/meridian-his/internal/platform/httpx"
	"github.com/meridian-his/meridian-his/internal/rbac"
	"github.com/meridian-his/meridian-his/internal/shared"
)

// Handler serves the patient and appointment read API. Every route sits
// behind the coarse permission gate; record routes add a scope check and
// list routes filter row by row.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the read endpoints on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("patients", rbac.ActionRead))
		r.Get("/patients", h.handleListPatients)
		r.Get("/patients/{id}", h.handleGetPatient)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("appointments", rbac.ActionRead))
		r.Get("/appointments", h.handleListAppointments)
		r.Get("/appointments/{id}", h.handleGetAppointment)
	})
}

func (h *Handler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListPatients(r.Context())
	if err != nil {
		h.logger.Error("list patients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	visible := rbac.FilterAllowed(h.guard.Engine, principal, "patients", rbac.ActionRead, rows)
	httpx.JSON(w, http.StatusOK, map[string]any{"patients": visible})
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid patient id")
		return
	}
	row, err := h.service.GetPatient(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	if decision := h.guard.Authorize(r.Context(), "patients", rbac.ActionRead, *row); !decision.Allowed {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListAppointments(r.Context())
	if err != nil {
		h.logger.Error("list appointments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	visible := rbac.FilterAllowed(h.guard.Engine, principal, "appointments", rbac.ActionRead, rows)
	httpx.JSON(w, http.StatusOK, map[string]any{"appointments": visible})
}

func (h *Handler) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid appointment id")
		return
	}
	row, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	if decision := h.guard.Authorize(r.Context(), "appointments", rbac.ActionRead, *row); !decision.Allowed {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}
