package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// TemplateRepository — CRUD для таблицы requirement_templates.
// Поля шаблона — в TemplateFieldRepository.
type TemplateRepository interface {
	// Create создаёт шаблон (без полей).
	Create(ctx context.Context, t *model.Template) error
	// GetByID возвращает шаблон по ID (без полей).
	GetByID(ctx context.Context, id int64) (*model.Template, error)
	// List возвращает шаблоны, новые первыми. isActive == nil — все.
	List(ctx context.Context, isActive *bool) ([]*model.Template, error)
	// Update перезаписывает метаданные шаблона.
	Update(ctx context.Context, t *model.Template) error
	// SetActive включает или выключает шаблон.
	SetActive(ctx context.Context, id int64, active bool) error
	// Delete удаляет шаблон вместе с полями.
	Delete(ctx context.Context, id int64) error
}

type templateRepo struct {
	db DBTX
}

// NewTemplateRepository создаёт репозиторий шаблонов.
func NewTemplateRepository(db DBTX) TemplateRepository {
	return &templateRepo{db: db}
}

const templateColumns = `id, name, description, is_active, created_by, created_at, updated_at`

func scanTemplate(row pgx.Row) (*model.Template, error) {
	t := &model.Template{}
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.IsActive, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *templateRepo) Create(ctx context.Context, t *model.Template) error {
	query := `
		INSERT INTO requirement_templates (name, description, is_active, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, t.Name, t.Description, t.IsActive, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания шаблона: %w", err)
	}
	return nil
}

func (r *templateRepo) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM requirement_templates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения шаблона: %w", err)
	}
	return t, nil
}

func (r *templateRepo) List(ctx context.Context, isActive *bool) ([]*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM requirement_templates`
	var args []any
	if isActive != nil {
		query += ` WHERE is_active = $1`
		args = append(args, *isActive)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка шаблонов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования шаблона: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *templateRepo) Update(ctx context.Context, t *model.Template) error {
	query := `
		UPDATE requirement_templates
		SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, t.ID, t.Name, t.Description, t.IsActive).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления шаблона: %w", err)
	}
	return nil
}

func (r *templateRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE requirement_templates SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("ошибка изменения активности шаблона: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM requirement_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления шаблона: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
