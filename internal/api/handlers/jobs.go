// jobs.go — обработчики /api/v1/jobs endpoints.
// Список и карточка вакансии доступны всем, изменения — администраторам.
package handlers

import (
	"net/http"
	"strings"

	"github.com/bigkaa/recruitart/internal/api/middleware"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/service"
)

// ListJobs — GET /api/v1/jobs.
// Посетитель видит только активные вакансии.
func (h *APIHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var (
		status         *model.JobStatus
		jobType        *model.JobType
		category       *model.JobCategory
		featured       *bool
		excludeExpired *bool
		location       *string
		search         *string
		limit, offset  *int
	)
	if !queryParam(w, r, "status", &status) ||
		!queryParam(w, r, "job_type", &jobType) ||
		!queryParam(w, r, "category", &category) ||
		!queryParam(w, r, "featured", &featured) ||
		!queryParam(w, r, "exclude_expired", &excludeExpired) ||
		!queryParam(w, r, "location", &location) ||
		!queryParam(w, r, "search", &search) ||
		!queryParam(w, r, "limit", &limit) ||
		!queryParam(w, r, "offset", &offset) {
		return
	}

	l, o := paginationDefaults(limit, offset)
	f := model.JobFilter{
		Status:         status,
		JobType:        jobType,
		Category:       category,
		Featured:       featured,
		ExcludeExpired: excludeExpired != nil && *excludeExpired,
		Limit:          l,
		Offset:         o,
	}
	if location != nil {
		f.Location = strings.TrimSpace(*location)
	}
	if search != nil {
		f.Search = strings.TrimSpace(*search)
	}

	jobs, total, err := h.jobs.List(r.Context(), middleware.ActorFromContext(r.Context()), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	now := h.now()
	items := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, mapJob(j, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs": items,
		"meta": listMeta{Total: total, Limit: l, Offset: o},
	})
}

// CreateJob — POST /api/v1/jobs. Доступ: администратор.
func (h *APIHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	job, err := h.jobs.Create(r.Context(), middleware.ActorFromContext(r.Context()), service.JobInput{
		Title:              req.Title,
		CompanyName:        req.CompanyName,
		Location:           req.Location,
		JobType:            req.JobType,
		Description:        req.Description,
		SkillsRequired:     req.SkillsRequired,
		Category:           req.Category,
		SalaryRange:        req.SalaryRange,
		ExperienceRequired: req.ExperienceRequired,
		Status:             req.Status,
		ApplyDeadline:      req.ApplyDeadline.Time,
		IsFeatured:         req.IsFeatured,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Вакансия создана",
		"job":     mapJob(job, h.now()),
	})
}

// GetJob — GET /api/v1/jobs/{job_pk}. Вакансия вместе с полями анкеты.
func (h *APIHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := mapJob(job.Job, h.now())
	resp.Requirements = mapFields(job.Fields)
	writeJSON(w, http.StatusOK, map[string]any{"job": resp})
}

// UpdateJob — PATCH /api/v1/jobs/{job_pk}. Доступ: администратор.
func (h *APIHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	var req jobPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := service.JobPatch{
		Title:              req.Title,
		CompanyName:        req.CompanyName,
		Location:           req.Location,
		JobType:            req.JobType,
		Description:        req.Description,
		SkillsRequired:     req.SkillsRequired,
		Category:           req.Category,
		SalaryRange:        req.SalaryRange,
		ExperienceRequired: req.ExperienceRequired,
		Status:             req.Status,
		IsFeatured:         req.IsFeatured,
	}
	if req.ApplyDeadline != nil {
		d := req.ApplyDeadline.Time
		p.ApplyDeadline = &d
	}

	job, err := h.jobs.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Вакансия обновлена",
		"job":     mapJob(job, h.now()),
	})
}

// DeleteJob — DELETE /api/v1/jobs/{job_pk}. Удаляет поля и заявки каскадом.
func (h *APIHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	if err := h.jobs.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListJobApplications — GET /api/v1/jobs/{job_pk}/applications. Доступ: администратор.
func (h *APIHandler) ListJobApplications(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "job_pk")
	if !ok {
		return
	}
	f, ok := applicationFilterFromQuery(w, r)
	if !ok {
		return
	}

	apps, total, err := h.applications.ListByJob(r.Context(), middleware.ActorFromContext(r.Context()), id, f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applications": mapApplications(apps),
		"meta":         listMeta{Total: total, Limit: f.Limit, Offset: f.Offset},
	})
}
