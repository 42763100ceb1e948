// templates.go — сервис шаблонов наборов полей.
// CRUD шаблонов и их полей, применение шаблона к вакансии (get-or-create
// по field_name без изменения существующих полей), копирование.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/repository"
)

// TemplateInput — данные для создания шаблона.
type TemplateInput struct {
	Name        string
	Description string
	// IsActive — nil означает «активен»
	IsActive *bool
	Fields   []formfield.Spec
}

// ApplyResult — итог применения шаблона к вакансии.
type ApplyResult struct {
	Template *model.Template
	JobID    int64
	// Fields — поля вакансии с именами из шаблона (существовавшие и новые)
	Fields []*model.FieldDefinition
	// Created — сколько полей создано
	Created int
}

// TemplateService — сервис шаблонов.
type TemplateService struct {
	store        *repository.Store
	tx           Transactor
	set          fieldSet
	requirements *RequirementService
	logger       *slog.Logger
}

// NewTemplateService создаёт сервис шаблонов.
// requirements нужен для сброса кэша полей вакансии после применения шаблона.
func NewTemplateService(store *repository.Store, tx Transactor, requirements *RequirementService, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		store:        store,
		tx:           tx,
		set:          templateFieldSet(tx),
		requirements: requirements,
		logger:       logger.With(slog.String("component", "template_service")),
	}
}

// List возвращает шаблоны, новые первыми.
// Не-администраторы видят только активные шаблоны.
func (s *TemplateService) List(ctx context.Context, actor rbac.Actor, isActive *bool) ([]*model.Template, error) {
	if !actor.IsStaff() {
		active := true
		isActive = &active
	}
	templates, err := s.store.Templates.List(ctx, isActive)
	if err != nil {
		return nil, fmt.Errorf("получение списка шаблонов: %w", err)
	}
	for _, t := range templates {
		fields, err := s.store.TemplateFields.List(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("получение полей шаблона: %w", err)
		}
		t.Fields = fields
	}
	return templates, nil
}

// Get возвращает шаблон с полями.
func (s *TemplateService) Get(ctx context.Context, actor rbac.Actor, id int64) (*model.Template, error) {
	t, err := s.store.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound, "получение шаблона")
	}
	if !t.IsActive && !actor.IsStaff() {
		return nil, ErrTemplateNotFound
	}
	fields, err := s.store.TemplateFields.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("получение полей шаблона: %w", err)
	}
	t.Fields = fields
	return t, nil
}

// Create создаёт шаблон с вложенными полями в одной транзакции.
func (s *TemplateService) Create(ctx context.Context, actor rbac.Actor, in TemplateInput) (*model.Template, []formfield.Warning, error) {
	if err := requireStaff(actor); err != nil {
		return nil, nil, err
	}

	t := &model.Template{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedBy:   actor.Subject(),
	}
	if err := validateTemplate(t); err != nil {
		return nil, nil, err
	}

	specs := make([]formfield.Spec, 0, len(in.Fields))
	var warnings []formfield.Warning
	seen := make(map[string]bool, len(in.Fields))
	for i, raw := range in.Fields {
		spec := raw.Normalize()
		w, err := spec.Validate()
		if err != nil {
			return nil, nil, prefixFieldError(err, fmt.Sprintf("fields[%d].", i))
		}
		if seen[spec.FieldName] {
			return nil, nil, fmt.Errorf("%w: %q повторяется в запросе", ErrDuplicateFieldName, spec.FieldName)
		}
		seen[spec.FieldName] = true
		warnings = append(warnings, w...)
		specs = append(specs, spec)
	}

	err := s.tx.InTx(ctx, func(st *repository.Store) error {
		if err := st.Templates.Create(ctx, t); err != nil {
			return fmt.Errorf("сохранение шаблона: %w", err)
		}
		t.Fields = make([]*model.FieldDefinition, 0, len(specs))
		for _, spec := range specs {
			f := &model.FieldDefinition{TemplateID: t.ID, Spec: spec}
			if err := st.TemplateFields.Create(ctx, f); err != nil {
				return mapFieldWriteErr(err, spec.FieldName)
			}
			t.Fields = append(t.Fields, f)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Шаблон создан",
		slog.Int64("template_id", t.ID),
		slog.String("name", t.Name),
		slog.Int("fields", len(t.Fields)),
	)
	return t, warnings, nil
}

// Update обновляет метаданные шаблона.
func (s *TemplateService) Update(ctx context.Context, actor rbac.Actor, id int64, p model.TemplatePatch) (*model.Template, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	t, err := s.store.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound, "получение шаблона")
	}
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	if err := s.store.Templates.Update(ctx, t); err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound, "обновление шаблона")
	}
	return s.withFields(ctx, t)
}

// Delete удаляет шаблон вместе с полями. Поля вакансий не затрагиваются.
func (s *TemplateService) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.store.Templates.Delete(ctx, id); err != nil {
		return mapRepoErr(err, ErrTemplateNotFound, "удаление шаблона")
	}
	s.logger.Info("Шаблон удалён", slog.Int64("template_id", id))
	return nil
}

// SetActive включает или выключает шаблон.
func (s *TemplateService) SetActive(ctx context.Context, actor rbac.Actor, id int64, active bool) (*model.Template, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := s.store.Templates.SetActive(ctx, id, active); err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound, "изменение активности шаблона")
	}

	t, err := s.store.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound, "получение шаблона")
	}

	s.logger.Info("Активность шаблона изменена",
		slog.Int64("template_id", id),
		slog.Bool("is_active", active),
	)
	return s.withFields(ctx, t)
}

// Duplicate копирует шаблон с полями как «<name> (Copy)», копия неактивна.
func (s *TemplateService) Duplicate(ctx context.Context, actor rbac.Actor, id int64) (*model.Template, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	var cp *model.Template
	err := s.tx.InTx(ctx, func(st *repository.Store) error {
		src, err := st.Templates.GetByID(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrTemplateNotFound, "получение шаблона")
		}
		fields, err := st.TemplateFields.List(ctx, id)
		if err != nil {
			return fmt.Errorf("получение полей шаблона: %w", err)
		}

		cp = &model.Template{
			Name:        copyName(src.Name),
			Description: src.Description,
			IsActive:    false,
			CreatedBy:   actor.Subject(),
		}
		if err := st.Templates.Create(ctx, cp); err != nil {
			return fmt.Errorf("сохранение копии шаблона: %w", err)
		}

		cp.Fields = make([]*model.FieldDefinition, 0, len(fields))
		for _, f := range fields {
			nf := &model.FieldDefinition{TemplateID: cp.ID, Spec: f.Spec}
			if err := st.TemplateFields.Create(ctx, nf); err != nil {
				return mapFieldWriteErr(err, f.FieldName)
			}
			cp.Fields = append(cp.Fields, nf)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Шаблон скопирован",
		slog.Int64("source_id", id),
		slog.Int64("template_id", cp.ID),
	)
	return cp, nil
}

// ApplyToJob материализует поля шаблона в набор полей вакансии.
// Поля с уже существующим field_name не изменяются; повторное применение
// ничего не создаёт.
func (s *TemplateService) ApplyToJob(ctx context.Context, actor rbac.Actor, templateID, jobID int64) (*ApplyResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	res := &ApplyResult{JobID: jobID}
	err := s.tx.InTx(ctx, func(st *repository.Store) error {
		t, err := st.Templates.GetByID(ctx, templateID)
		if err != nil {
			return mapRepoErr(err, ErrTemplateNotFound, "получение шаблона")
		}
		if !t.IsActive {
			return ErrTemplateInactive
		}
		if _, err := st.Jobs.GetByID(ctx, jobID); err != nil {
			return mapRepoErr(err, ErrJobNotFound, "получение вакансии")
		}

		tfields, err := st.TemplateFields.List(ctx, templateID)
		if err != nil {
			return fmt.Errorf("получение полей шаблона: %w", err)
		}
		t.Fields = tfields
		res.Template = t

		res.Fields = make([]*model.FieldDefinition, 0, len(tfields))
		for _, tf := range tfields {
			f := &model.FieldDefinition{JobID: jobID, Spec: tf.Spec}
			created, err := st.Requirements.GetOrCreate(ctx, f)
			if err != nil {
				return mapRepoErr(err, ErrJobNotFound, "материализация поля")
			}
			if created {
				res.Created++
			}
			res.Fields = append(res.Fields, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.requirements.invalidate(jobID)

	templatesAppliedTotal.Inc()
	templateFieldsCreatedTotal.Add(float64(res.Created))
	s.logger.Info("Шаблон применён к вакансии",
		slog.Int64("template_id", templateID),
		slog.Int64("job_id", jobID),
		slog.Int("fields", len(res.Fields)),
		slog.Int("created", res.Created),
	)
	return res, nil
}

// ListFields возвращает поля шаблона.
func (s *TemplateService) ListFields(ctx context.Context, actor rbac.Actor, templateID int64) ([]*model.FieldDefinition, error) {
	if _, err := s.Get(ctx, actor, templateID); err != nil {
		return nil, err
	}
	return s.set.list(ctx, s.store, templateID)
}

// AddField добавляет поле в шаблон.
func (s *TemplateService) AddField(ctx context.Context, actor rbac.Actor, templateID int64, spec formfield.Spec) (*FieldResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.set.add(ctx, templateID, spec)
}

// ReplaceField полностью заменяет атрибуты поля шаблона (PUT).
func (s *TemplateService) ReplaceField(ctx context.Context, actor rbac.Actor, templateID, fieldID int64, spec formfield.Spec) (*FieldResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.set.update(ctx, templateID, fieldID, func(formfield.Spec) formfield.Spec { return spec })
}

// PatchField частично обновляет поле шаблона (PATCH).
func (s *TemplateService) PatchField(ctx context.Context, actor rbac.Actor, templateID, fieldID int64, p model.FieldPatch) (*FieldResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.set.update(ctx, templateID, fieldID, p.Apply)
}

// RemoveField удаляет поле шаблона.
func (s *TemplateService) RemoveField(ctx context.Context, actor rbac.Actor, templateID, fieldID int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	return s.set.remove(ctx, templateID, fieldID)
}

func (s *TemplateService) withFields(ctx context.Context, t *model.Template) (*model.Template, error) {
	fields, err := s.store.TemplateFields.List(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("получение полей шаблона: %w", err)
	}
	t.Fields = fields
	return t, nil
}

func validateTemplate(t *model.Template) error {
	switch {
	case t.Name == "":
		return &FieldError{Fields: map[string]string{"name": "обязательное поле"}}
	case utf8.RuneCountInString(t.Name) > 255:
		return &FieldError{Fields: map[string]string{"name": "не длиннее 255 символов"}}
	}
	return nil
}

// copyName — имя копии, обрезанное до допустимой длины.
func copyName(name string) string {
	const suffix = " (Copy)"
	runes := []rune(name)
	if limit := 255 - utf8.RuneCountInString(suffix); len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + suffix
}

// prefixFieldError добавляет префикс к ключам ошибки валидации поля.
func prefixFieldError(err error, prefix string) error {
	verr, ok := err.(*formfield.ValidationError) //nolint:errorlint // Validate возвращает тип напрямую
	if !ok {
		return fmt.Errorf("%w: %w", ErrValidation, err) //nolint:errorlint // намеренный двойной wrap
	}
	fields := make(map[string]string, len(verr.Fields))
	for k, v := range verr.Fields {
		fields[prefix+k] = v
	}
	return &FieldError{Fields: fields}
}
