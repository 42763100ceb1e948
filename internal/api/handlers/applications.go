// applications.go — обработчики /api/v1/applications endpoints.
// Подача заявки, просмотр, смена статуса и выгрузка в CSV.
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/bigkaa/recruitart/internal/api/errors"
	"github.com/bigkaa/recruitart/internal/api/middleware"
	"github.com/bigkaa/recruitart/internal/domain/answer"
	"github.com/bigkaa/recruitart/internal/domain/appstatus"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/export"
	"github.com/bigkaa/recruitart/internal/service"
)

// requirementKey — ключ ответа: число (ID поля) или строка
// (ID, field_name или текст вопроса).
type requirementKey string

// UnmarshalJSON принимает как число, так и строку.
func (k *requirementKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = requirementKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("requirement: ожидается число или строка")
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("requirement: ожидается целое число")
	}
	*k = requirementKey(n.String())
	return nil
}

// SubmitApplication — POST /api/v1/applications.
// Доступно всем; заявка аутентифицированного пользователя привязывается к sub.
func (h *APIHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Job <= 0 {
		h.writeServiceError(w, r, &service.FieldError{Fields: map[string]string{"job": "обязательное поле"}})
		return
	}

	inputs := make([]answer.Input, 0, len(req.Responses))
	for _, resp := range req.Responses {
		inputs = append(inputs, answer.Input{Key: string(resp.Requirement), Value: resp.ResponseValue})
	}

	res, err := h.applications.Submit(r.Context(), middleware.ActorFromContext(r.Context()), service.SubmitInput{
		JobID:          req.Job,
		FullName:       req.FullName,
		Email:          req.Email,
		Mobile:         req.Mobile,
		ResumeFileName: req.ResumeFileName,
		LinkedInURL:    req.LinkedInURL,
		PortfolioURL:   req.PortfolioURL,
		ExpectedSalary: req.ExpectedSalary,
		NoticePeriod:   req.NoticePeriod,
		CoverLetter:    req.CoverLetter,
		Responses:      inputs,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	body := map[string]any{
		"message":     "Заявка отправлена",
		"application": mapApplication(res.Application),
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	if len(res.Ignored) > 0 {
		body["ignored_responses"] = res.Ignored
	}
	writeJSON(w, http.StatusCreated, body)
}

// ListApplications — GET /api/v1/applications.
// Администратор видит все заявки, пользователь — свои,
// анонимный посетитель — заявки по email.
func (h *APIHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	f, ok := applicationFilterFromQuery(w, r)
	if !ok {
		return
	}
	var jobID *int64
	var email *string
	if !queryParam(w, r, "job_id", &jobID) || !queryParam(w, r, "email", &email) {
		return
	}
	f.JobID = jobID

	apps, total, err := h.applications.List(r.Context(), middleware.ActorFromContext(r.Context()), f, deref(email))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applications": mapApplications(apps),
		"meta":         listMeta{Total: total, Limit: f.Limit, Offset: f.Offset},
	})
}

// GetApplication — GET /api/v1/applications/{id}.
// Доступ: администратор, автор заявки или посетитель с email заявки.
func (h *APIHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var email *string
	if !queryParam(w, r, "email", &email) {
		return
	}

	app, err := h.applications.Get(r.Context(), middleware.ActorFromContext(r.Context()), id, deref(email))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": mapApplication(app)})
}

// UpdateApplicationStatus — POST/PATCH /api/v1/applications/{id}/status.
// Доступ: администратор. Кандидат получает уведомление.
func (h *APIHandler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.applications.UpdateStatus(r.Context(), middleware.ActorFromContext(r.Context()), id, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Статус заявки обновлён",
		"application": mapApplication(app),
	})
}

// ExportApplications — GET /api/v1/applications/export.
// Доступ: администратор. Ответ — text/csv с колонками по вопросам анкет.
func (h *APIHandler) ExportApplications(w http.ResponseWriter, r *http.Request) {
	var (
		ids    *string
		jobID  *int64
		status *string
	)
	if !queryParam(w, r, "ids", &ids) || !queryParam(w, r, "job_id", &jobID) || !queryParam(w, r, "status", &status) {
		return
	}

	f := model.ApplicationFilter{JobID: jobID}
	if ids != nil {
		parsed, err := parseIDList(*ids)
		if err != nil {
			h.writeServiceError(w, r, &service.FieldError{Fields: map[string]string{"ids": err.Error()}})
			return
		}
		f.IDs = parsed
	}
	if status != nil {
		st, err := appstatus.Parse(*status)
		if err != nil {
			h.writeServiceError(w, r, &service.FieldError{Fields: map[string]string{"status": err.Error()}})
			return
		}
		f.Status = &st
	}

	table, err := h.applications.Export(r.Context(), middleware.ActorFromContext(r.Context()), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Таблица уже в памяти: заголовки отправляются только после успешной записи.
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, table); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(h.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// applicationFilterFromQuery разбирает status, limit и offset.
func applicationFilterFromQuery(w http.ResponseWriter, r *http.Request) (model.ApplicationFilter, bool) {
	var (
		status        *string
		limit, offset *int
	)
	if !queryParam(w, r, "status", &status) || !queryParam(w, r, "limit", &limit) || !queryParam(w, r, "offset", &offset) {
		return model.ApplicationFilter{}, false
	}

	l, o := paginationDefaults(limit, offset)
	f := model.ApplicationFilter{Limit: l, Offset: o}
	if status != nil {
		st, err := appstatus.Parse(*status)
		if err != nil {
			apierrors.FieldValidationError(w, "Ошибка валидации", map[string]string{"status": err.Error()})
			return model.ApplicationFilter{}, false
		}
		f.Status = &st
	}
	return f, true
}

// parseIDList разбирает список идентификаторов через запятую.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("некорректный идентификатор %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
