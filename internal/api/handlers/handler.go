// handler.go — основной обработчик Recruit API.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/recruitart/internal/api/errors"
	"github.com/bigkaa/recruitart/internal/domain/answer"
	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/service"
)

// maxBodyBytes — предел размера тела запроса.
const maxBodyBytes = 1 << 20

// APIHandler — основной обработчик API Recruit API.
type APIHandler struct {
	health       *HealthHandler
	jobs         *service.JobService
	requirements *service.RequirementService
	templates    *service.TemplateService
	applications *service.ApplicationService
	roles        *service.RoleService
	now          func() time.Time
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	jobs *service.JobService,
	requirements *service.RequirementService,
	templates *service.TemplateService,
	applications *service.ApplicationService,
	roles *service.RoleService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:       health,
		jobs:         jobs,
		requirements: requirements,
		templates:    templates,
		applications: applications,
		roles:        roles,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// Health — обработчик health endpoints.
func (h *APIHandler) Health() *HealthHandler {
	return h.health
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса в dst. Неизвестные поля — ошибка.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// pathID извлекает числовой path-параметр.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id <= 0 {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр %s", name))
		return 0, false
	}
	return id, true
}

// queryParam связывает необязательный query-параметр с dst.
func queryParam(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр %s: %v", name, err))
		return false
	}
	return true
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErr  *service.FieldError
		answerErr *answer.ValidationError
		specErr   *formfield.ValidationError
	)

	switch {
	case errors.As(err, &fieldErr):
		apierrors.FieldValidationError(w, "Ошибка валидации", fieldErr.Fields)
	case errors.As(err, &answerErr):
		apierrors.FieldValidationError(w, answerErr.Error(), answerErr.Fields)
	case errors.As(err, &specErr):
		apierrors.FieldValidationError(w, "Некорректное определение поля", specErr.Fields)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
