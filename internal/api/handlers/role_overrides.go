// role_overrides.go — обработчики /api/v1/admin/role-overrides endpoints.
// Локальное повышение роли поверх роли из Keycloak. Доступ: superuser.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/recruitart/internal/api/errors"
	"github.com/bigkaa/recruitart/internal/api/middleware"
)

// ListRoleOverrides — GET /api/v1/admin/role-overrides.
func (h *APIHandler) ListRoleOverrides(w http.ResponseWriter, r *http.Request) {
	var limit, offset *int
	if !queryParam(w, r, "limit", &limit) || !queryParam(w, r, "offset", &offset) {
		return
	}
	l, o := paginationDefaults(limit, offset)

	items, err := h.roles.List(r.Context(), middleware.ActorFromContext(r.Context()), l, o)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]roleOverrideResponse, 0, len(items))
	for _, ro := range items {
		resp = append(resp, mapRoleOverride(ro))
	}
	writeJSON(w, http.StatusOK, map[string]any{"role_overrides": resp})
}

// SetRoleOverride — PUT /api/v1/admin/role-overrides/{subject}.
func (h *APIHandler) SetRoleOverride(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	if subject == "" {
		apierrors.ValidationError(w, "Не указан subject")
		return
	}
	var req roleOverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ro, err := h.roles.Set(r.Context(), middleware.ActorFromContext(r.Context()), subject, req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Роль назначена",
		"role_override": mapRoleOverride(ro),
	})
}

// DeleteRoleOverride — DELETE /api/v1/admin/role-overrides/{subject}.
func (h *APIHandler) DeleteRoleOverride(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	if err := h.roles.Remove(r.Context(), middleware.ActorFromContext(r.Context()), subject); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
