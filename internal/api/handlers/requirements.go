// requirements.go — обработчики /api/v1/jobs/{job_pk}/requirements endpoints.
// Набор полей анкеты вакансии: чтение открыто (кроме черновиков), изменения — администраторам.
package handlers

import (
	"net/http"

	"github.com/bigkaa/recruitart/internal/api/middleware"
	"github.com/bigkaa/recruitart/internal/service"
)

// ListRequirements — GET /api/v1/jobs/{job_pk}/requirements.
func (h *APIHandler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}

	fields, err := h.requirements.ListFor(r.Context(), middleware.ActorFromContext(r.Context()), jobID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":       jobID,
		"requirements": mapFields(fields),
	})
}

// CreateRequirement — POST /api/v1/jobs/{job_pk}/requirements.
func (h *APIHandler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	var req fieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.requirements.Add(r.Context(), middleware.ActorFromContext(r.Context()), jobID, req.spec())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeFieldResult(w, http.StatusCreated, "Поле добавлено", "requirement", res)
}

// GetRequirement — GET /api/v1/jobs/{job_pk}/requirements/{id}.
func (h *APIHandler) GetRequirement(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	f, err := h.requirements.GetFor(r.Context(), middleware.ActorFromContext(r.Context()), jobID, fieldID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requirement": mapField(f)})
}

// ReplaceRequirement — PUT /api/v1/jobs/{job_pk}/requirements/{id}.
func (h *APIHandler) ReplaceRequirement(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req fieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.requirements.Replace(r.Context(), middleware.ActorFromContext(r.Context()), jobID, fieldID, req.spec())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeFieldResult(w, http.StatusOK, "Поле обновлено", "requirement", res)
}

// PatchRequirement — PATCH /api/v1/jobs/{job_pk}/requirements/{id}.
func (h *APIHandler) PatchRequirement(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req fieldPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.requirements.Patch(r.Context(), middleware.ActorFromContext(r.Context()), jobID, fieldID, req.patch())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeFieldResult(w, http.StatusOK, "Поле обновлено", "requirement", res)
}

// DeleteRequirement — DELETE /api/v1/jobs/{job_pk}/requirements/{id}.
// Ответы кандидатов на это поле удаляются каскадом.
func (h *APIHandler) DeleteRequirement(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.requirements.Remove(r.Context(), middleware.ActorFromContext(r.Context()), jobID, fieldID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFieldResult записывает поле и предупреждения валидации.
func writeFieldResult(w http.ResponseWriter, status int, message, key string, res *service.FieldResult) {
	body := map[string]any{
		"message": message,
		key:       mapField(res.Field),
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	writeJSON(w, status, body)
}
