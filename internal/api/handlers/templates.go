// templates.go — обработчики /api/v1/requirements/templates endpoints.
// CRUD шаблонов и их полей, применение к вакансии, копирование.
package handlers

import (
	"net/http"

	"github.com/bigkaa/recruitart/internal/api/middleware"
	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/service"
)

// ListTemplates — GET /api/v1/requirements/templates.
// Посетитель видит только активные шаблоны.
func (h *APIHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var isActive *bool
	if !queryParam(w, r, "is_active", &isActive) {
		return
	}

	templates, err := h.templates.List(r.Context(), middleware.ActorFromContext(r.Context()), isActive)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		items = append(items, mapTemplate(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": items})
}

// CreateTemplate — POST /api/v1/requirements/templates.
// Шаблон создаётся вместе с полями в одной транзакции.
func (h *APIHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	specs := make([]formfield.Spec, 0, len(req.Fields))
	for _, f := range req.Fields {
		specs = append(specs, f.spec())
	}

	t, warnings, err := h.templates.Create(r.Context(), middleware.ActorFromContext(r.Context()), service.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Fields:      specs,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	body := map[string]any{
		"message":  "Шаблон создан",
		"template": mapTemplate(t),
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	writeJSON(w, http.StatusCreated, body)
}

// GetTemplate — GET /api/v1/requirements/templates/{id}.
func (h *APIHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.templates.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": mapTemplate(t)})
}

// UpdateTemplate — PUT/PATCH /api/v1/requirements/templates/{id}.
// Изменяет только метаданные; поля меняются через /fields.
func (h *APIHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req templatePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.templates.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, model.TemplatePatch{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Шаблон обновлён",
		"template": mapTemplate(t),
	})
}

// DeleteTemplate — DELETE /api/v1/requirements/templates/{id}.
// Поля вакансий, созданные из шаблона, не затрагиваются.
func (h *APIHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.templates.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateTemplate — POST /api/v1/requirements/templates/{id}/activate.
func (h *APIHandler) ActivateTemplate(w http.ResponseWriter, r *http.Request) {
	h.setTemplateActive(w, r, true)
}

// DeactivateTemplate — POST /api/v1/requirements/templates/{id}/deactivate.
func (h *APIHandler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	h.setTemplateActive(w, r, false)
}

func (h *APIHandler) setTemplateActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.templates.SetActive(r.Context(), middleware.ActorFromContext(r.Context()), id, active)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	message := "Шаблон деактивирован"
	if active {
		message = "Шаблон активирован"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  message,
		"template": mapTemplate(t),
	})
}

// DuplicateTemplate — POST /api/v1/requirements/templates/{id}/duplicate.
// Копия создаётся неактивной.
func (h *APIHandler) DuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.templates.Duplicate(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Шаблон скопирован",
		"template": mapTemplate(t),
	})
}

// ApplyTemplate — POST /api/v1/requirements/templates/{id}/apply_to_job.
// Существующие поля вакансии с теми же field_name не изменяются.
func (h *APIHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req applyTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.JobID <= 0 {
		h.writeServiceError(w, r, &service.FieldError{Fields: map[string]string{"job_id": "обязательное поле"}})
		return
	}

	res, err := h.templates.ApplyToJob(r.Context(), middleware.ActorFromContext(r.Context()), id, req.JobID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "Шаблон применён к вакансии",
		"template_id":        res.Template.ID,
		"job_id":             res.JobID,
		"requirements_count": len(res.Fields),
		"created_count":      res.Created,
		"requirements":       mapFields(res.Fields),
	})
}

// --- Поля шаблона ---

// ListTemplateFields — GET /api/v1/requirements/templates/{id}/fields.
func (h *APIHandler) ListTemplateFields(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	fields, err := h.templates.ListFields(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"template_id": id,
		"fields":      mapFields(fields),
	})
}

// CreateTemplateField — POST /api/v1/requirements/templates/{id}/fields.
func (h *APIHandler) CreateTemplateField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req fieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.templates.AddField(r.Context(), middleware.ActorFromContext(r.Context()), id, req.spec())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeFieldResult(w, http.StatusCreated, "Поле добавлено", "field", res)
}

// ReplaceTemplateField — PUT /api/v1/requirements/templates/{id}/fields/{fieldId}.
func (h *APIHandler) ReplaceTemplateField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "fieldId")
	if !ok {
		return
	}
	var req fieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.templates.ReplaceField(r.Context(), middleware.ActorFromContext(r.Context()), id, fieldID, req.spec())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeFieldResult(w, http.StatusOK, "Поле обновлено", "field", res)
}

// PatchTemplateField — PATCH /api/v1/requirements/templates/{id}/fields/{fieldId}.
func (h *APIHandler) PatchTemplateField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "fieldId")
	if !ok {
		return
	}
	var req fieldPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.templates.PatchField(r.Context(), middleware.ActorFromContext(r.Context()), id, fieldID, req.patch())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeFieldResult(w, http.StatusOK, "Поле обновлено", "field", res)
}

// DeleteTemplateField — DELETE /api/v1/requirements/templates/{id}/fields/{fieldId}.
func (h *APIHandler) DeleteTemplateField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "fieldId")
	if !ok {
		return
	}

	if err := h.templates.RemoveField(r.Context(), middleware.ActorFromContext(r.Context()), id, fieldID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
