// requirements.go — сервис набора полей анкеты вакансии.
// Публичное чтение идёт через FieldSetCache; любая мутация сбрасывает кэш вакансии.
package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/repository"
)

// RequirementService — сервис полей анкеты вакансии.
type RequirementService struct {
	store  *repository.Store
	set    fieldSet
	cache  *FieldSetCache
	logger *slog.Logger
}

// NewRequirementService создаёт сервис полей вакансии.
// cache может быть nil — тогда чтение всегда идёт в БД.
func NewRequirementService(store *repository.Store, tx Transactor, cache *FieldSetCache, logger *slog.Logger) *RequirementService {
	return &RequirementService{
		store:  store,
		set:    jobFieldSet(tx),
		cache:  cache,
		logger: logger.With(slog.String("component", "requirement_service")),
	}
}

// List возвращает набор полей вакансии в порядке (display_order, id).
func (s *RequirementService) List(ctx context.Context, jobID int64) ([]*model.FieldDefinition, error) {
	if fields, ok := s.cache.Get(jobID); ok {
		return fields, nil
	}

	fields, err := s.set.list(ctx, s.store, jobID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(jobID, fields)
	return fields, nil
}

// Get возвращает поле вакансии.
func (s *RequirementService) Get(ctx context.Context, jobID, fieldID int64) (*model.FieldDefinition, error) {
	return s.set.get(ctx, s.store, jobID, fieldID)
}

// ListFor — List для субъекта: поля черновика видны только администраторам,
// как и сам черновик.
func (s *RequirementService) ListFor(ctx context.Context, actor rbac.Actor, jobID int64) ([]*model.FieldDefinition, error) {
	if err := s.checkVisible(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return s.List(ctx, jobID)
}

// GetFor — Get с тем же правилом видимости, что ListFor.
func (s *RequirementService) GetFor(ctx context.Context, actor rbac.Actor, jobID, fieldID int64) (*model.FieldDefinition, error) {
	if err := s.checkVisible(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID, fieldID)
}

func (s *RequirementService) checkVisible(ctx context.Context, actor rbac.Actor, jobID int64) error {
	if actor.IsStaff() {
		return nil
	}
	job, err := s.store.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return mapRepoErr(err, ErrJobNotFound, "получение вакансии")
	}
	if !visibleTo(actor, job) {
		return ErrJobNotFound
	}
	return nil
}

// Add добавляет поле в набор вакансии.
func (s *RequirementService) Add(ctx context.Context, actor rbac.Actor, jobID int64, spec formfield.Spec) (*FieldResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	res, err := s.set.add(ctx, jobID, spec)
	if err != nil {
		return nil, err
	}
	s.invalidate(jobID)

	s.logger.Info("Поле вакансии добавлено",
		slog.Int64("job_id", jobID),
		slog.Int64("field_id", res.Field.ID),
		slog.String("field_name", res.Field.FieldName),
	)
	return res, nil
}

// Replace полностью заменяет атрибуты поля (PUT).
func (s *RequirementService) Replace(ctx context.Context, actor rbac.Actor, jobID, fieldID int64, spec formfield.Spec) (*FieldResult, error) {
	return s.update(ctx, actor, jobID, fieldID, func(formfield.Spec) formfield.Spec { return spec })
}

// Patch частично обновляет атрибуты поля (PATCH).
func (s *RequirementService) Patch(ctx context.Context, actor rbac.Actor, jobID, fieldID int64, p model.FieldPatch) (*FieldResult, error) {
	return s.update(ctx, actor, jobID, fieldID, p.Apply)
}

func (s *RequirementService) update(ctx context.Context, actor rbac.Actor, jobID, fieldID int64, apply func(formfield.Spec) formfield.Spec) (*FieldResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	res, err := s.set.update(ctx, jobID, fieldID, apply)
	if err != nil {
		return nil, err
	}
	s.invalidate(jobID)

	s.logger.Info("Поле вакансии обновлено",
		slog.Int64("job_id", jobID),
		slog.Int64("field_id", fieldID),
	)
	return res, nil
}

// Remove удаляет поле вакансии вместе с ответами на него.
func (s *RequirementService) Remove(ctx context.Context, actor rbac.Actor, jobID, fieldID int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.set.remove(ctx, jobID, fieldID); err != nil {
		return err
	}
	s.invalidate(jobID)

	s.logger.Info("Поле вакансии удалено",
		slog.Int64("job_id", jobID),
		slog.Int64("field_id", fieldID),
	)
	return nil
}

// invalidate сбрасывает кэш набора полей вакансии.
func (s *RequirementService) invalidate(jobID int64) {
	s.cache.Invalidate(jobID)
}
