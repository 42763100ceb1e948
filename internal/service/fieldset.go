// fieldset.go — общие операции над набором полей одного владельца
// (вакансия или шаблон). Каждая мутация выполняется в транзакции.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/repository"
)

// FieldResult — поле после мутации и предупреждения к нему.
type FieldResult struct {
	Field    *model.FieldDefinition
	Warnings []formfield.Warning
}

// fieldSet — набор полей конкретного вида владельца.
type fieldSet struct {
	tx Transactor
	// repo выбирает репозиторий полей из Store
	repo func(s *repository.Store) repository.FieldRepository
	// checkOwner проверяет существование владельца
	checkOwner func(ctx context.Context, s *repository.Store, ownerID int64) error
	// assign проставляет владельца новому полю
	assign func(f *model.FieldDefinition, ownerID int64)
}

func jobFieldSet(tx Transactor) fieldSet {
	return fieldSet{
		tx:   tx,
		repo: func(s *repository.Store) repository.FieldRepository { return s.Requirements },
		checkOwner: func(ctx context.Context, s *repository.Store, jobID int64) error {
			_, err := s.Jobs.GetByID(ctx, jobID)
			return mapRepoErr(err, ErrJobNotFound, "получение вакансии")
		},
		assign: func(f *model.FieldDefinition, jobID int64) { f.JobID = jobID },
	}
}

func templateFieldSet(tx Transactor) fieldSet {
	return fieldSet{
		tx:   tx,
		repo: func(s *repository.Store) repository.FieldRepository { return s.TemplateFields },
		checkOwner: func(ctx context.Context, s *repository.Store, templateID int64) error {
			_, err := s.Templates.GetByID(ctx, templateID)
			return mapRepoErr(err, ErrTemplateNotFound, "получение шаблона")
		},
		assign: func(f *model.FieldDefinition, templateID int64) { f.TemplateID = templateID },
	}
}

// list возвращает поля владельца в порядке (display_order, id).
func (fs fieldSet) list(ctx context.Context, store *repository.Store, ownerID int64) ([]*model.FieldDefinition, error) {
	if err := fs.checkOwner(ctx, store, ownerID); err != nil {
		return nil, err
	}
	fields, err := fs.repo(store).List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение набора полей: %w", err)
	}
	return fields, nil
}

// get возвращает одно поле владельца.
func (fs fieldSet) get(ctx context.Context, store *repository.Store, ownerID, fieldID int64) (*model.FieldDefinition, error) {
	if err := fs.checkOwner(ctx, store, ownerID); err != nil {
		return nil, err
	}
	f, err := fs.repo(store).GetByID(ctx, ownerID, fieldID)
	if err != nil {
		return nil, mapRepoErr(err, ErrFieldNotFound, "получение поля")
	}
	return f, nil
}

// add добавляет поле. Дубль field_name — ErrDuplicateFieldName, ничего не сохраняется.
func (fs fieldSet) add(ctx context.Context, ownerID int64, spec formfield.Spec) (*FieldResult, error) {
	spec = spec.Normalize()
	warnings, err := validateSpec(spec)
	if err != nil {
		return nil, err
	}

	f := &model.FieldDefinition{Spec: spec}
	fs.assign(f, ownerID)

	err = fs.tx.InTx(ctx, func(s *repository.Store) error {
		if err := fs.checkOwner(ctx, s, ownerID); err != nil {
			return err
		}
		if err := fs.ensureNameFree(ctx, s, ownerID, spec.FieldName, 0); err != nil {
			return err
		}
		if err := fs.repo(s).Create(ctx, f); err != nil {
			return mapFieldWriteErr(err, spec.FieldName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &FieldResult{Field: f, Warnings: warnings}, nil
}

// update применяет изменение к полю. apply получает текущие атрибуты
// и возвращает новые (PUT — полная замена, PATCH — частичная).
func (fs fieldSet) update(ctx context.Context, ownerID, fieldID int64, apply func(formfield.Spec) formfield.Spec) (*FieldResult, error) {
	var result *FieldResult
	err := fs.tx.InTx(ctx, func(s *repository.Store) error {
		if err := fs.checkOwner(ctx, s, ownerID); err != nil {
			return err
		}
		f, err := fs.repo(s).GetByID(ctx, ownerID, fieldID)
		if err != nil {
			return mapRepoErr(err, ErrFieldNotFound, "получение поля")
		}

		f.Spec = apply(f.Spec).Normalize()
		warnings, err := validateSpec(f.Spec)
		if err != nil {
			return err
		}
		if err := fs.ensureNameFree(ctx, s, ownerID, f.FieldName, f.ID); err != nil {
			return err
		}
		if err := fs.repo(s).Update(ctx, f); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrFieldNotFound
			}
			return mapFieldWriteErr(err, f.FieldName)
		}
		result = &FieldResult{Field: f, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// remove удаляет поле; ответы на поле вакансии удаляются каскадом.
func (fs fieldSet) remove(ctx context.Context, ownerID, fieldID int64) error {
	return fs.tx.InTx(ctx, func(s *repository.Store) error {
		if err := fs.checkOwner(ctx, s, ownerID); err != nil {
			return err
		}
		if err := fs.repo(s).Delete(ctx, ownerID, fieldID); err != nil {
			return mapRepoErr(err, ErrFieldNotFound, "удаление поля")
		}
		return nil
	})
}

// ensureNameFree проверяет, что field_name не занят другим полем владельца.
func (fs fieldSet) ensureNameFree(ctx context.Context, s *repository.Store, ownerID int64, name string, selfID int64) error {
	existing, err := fs.repo(s).GetByName(ctx, ownerID, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("проверка уникальности field_name: %w", err)
	case existing.ID == selfID:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrDuplicateFieldName, name)
	}
}

// mapFieldWriteErr переводит ошибку записи поля; гонка за UNIQUE — тот же дубль.
func mapFieldWriteErr(err error, name string) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %q", ErrDuplicateFieldName, name)
	}
	return mapRepoErr(err, ErrFieldNotFound, "сохранение поля")
}
