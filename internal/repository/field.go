package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// FieldRepository — CRUD полей анкеты одного вида владельца
// (вакансия: job_requirements, шаблон: template_fields).
type FieldRepository interface {
	// List возвращает поля владельца в порядке (display_order, id).
	List(ctx context.Context, ownerID int64) ([]*model.FieldDefinition, error)
	// GetByID возвращает поле владельца по ID.
	GetByID(ctx context.Context, ownerID, id int64) (*model.FieldDefinition, error)
	// GetByName возвращает поле владельца по field_name.
	GetByName(ctx context.Context, ownerID int64, name string) (*model.FieldDefinition, error)
	// Create создаёт поле. Дубль field_name у владельца — ErrConflict.
	Create(ctx context.Context, f *model.FieldDefinition) error
	// Update полностью перезаписывает атрибуты поля.
	Update(ctx context.Context, f *model.FieldDefinition) error
	// Delete удаляет поле (ответы на поле вакансии удаляются каскадом).
	Delete(ctx context.Context, ownerID, id int64) error
	// GetOrCreate создаёт поле, если у владельца нет поля с таким field_name.
	// Существующее поле не изменяется; f заполняется данными из БД.
	GetOrCreate(ctx context.Context, f *model.FieldDefinition) (created bool, err error)
}

// fieldTable — описание таблицы полей конкретного владельца.
type fieldTable struct {
	table    string
	ownerCol string
	// owner возвращает указатель на поле модели с ID владельца.
	owner func(f *model.FieldDefinition) *int64
}

var (
	jobFieldTable = fieldTable{
		table:    "job_requirements",
		ownerCol: "job_id",
		owner:    func(f *model.FieldDefinition) *int64 { return &f.JobID },
	}
	templateFieldTable = fieldTable{
		table:    "template_fields",
		ownerCol: "template_id",
		owner:    func(f *model.FieldDefinition) *int64 { return &f.TemplateID },
	}
)

// fieldRepo — реализация FieldRepository для одной таблицы.
type fieldRepo struct {
	db DBTX
	t  fieldTable
}

// NewRequirementRepository создаёт репозиторий полей вакансий.
func NewRequirementRepository(db DBTX) FieldRepository {
	return &fieldRepo{db: db, t: jobFieldTable}
}

// NewTemplateFieldRepository создаёт репозиторий полей шаблонов.
func NewTemplateFieldRepository(db DBTX) FieldRepository {
	return &fieldRepo{db: db, t: templateFieldTable}
}

func (r *fieldRepo) columns() string {
	return "id, " + r.t.ownerCol + `, question_text, field_type, field_name,
		is_required, options, help_text, display_order, created_at, updated_at`
}

func (r *fieldRepo) scan(row pgx.Row) (*model.FieldDefinition, error) {
	f := &model.FieldDefinition{}
	err := row.Scan(
		&f.ID, r.t.owner(f), &f.QuestionText, &f.FieldType, &f.FieldName,
		&f.IsRequired, &f.Options, &f.HelpText, &f.DisplayOrder, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

func (r *fieldRepo) List(ctx context.Context, ownerID int64) ([]*model.FieldDefinition, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1
		ORDER BY display_order, id`, r.columns(), r.t.table, r.t.ownerCol)

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения полей %s: %w", r.t.table, err)
	}
	defer rows.Close()

	result := make([]*model.FieldDefinition, 0)
	for rows.Next() {
		f, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования поля %s: %w", r.t.table, err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *fieldRepo) GetByID(ctx context.Context, ownerID, id int64) (*model.FieldDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND id = $2`,
		r.columns(), r.t.table, r.t.ownerCol)

	f, err := r.scan(r.db.QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения поля %s: %w", r.t.table, err)
	}
	return f, nil
}

func (r *fieldRepo) GetByName(ctx context.Context, ownerID int64, name string) (*model.FieldDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND field_name = $2`,
		r.columns(), r.t.table, r.t.ownerCol)

	f, err := r.scan(r.db.QueryRow(ctx, query, ownerID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения поля %s по имени: %w", r.t.table, err)
	}
	return f, nil
}

func (r *fieldRepo) Create(ctx context.Context, f *model.FieldDefinition) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, question_text, field_type, field_name,
			is_required, options, help_text, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`, r.t.table, r.t.ownerCol)

	err := r.db.QueryRow(ctx, query,
		*r.t.owner(f), f.QuestionText, f.FieldType, f.FieldName,
		f.IsRequired, f.Options, f.HelpText, f.DisplayOrder,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: поле %q уже существует", ErrConflict, f.FieldName)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: владелец поля %d", ErrReference, *r.t.owner(f))
		}
		return fmt.Errorf("ошибка создания поля %s: %w", r.t.table, err)
	}
	return nil
}

func (r *fieldRepo) Update(ctx context.Context, f *model.FieldDefinition) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET question_text = $3, field_type = $4, field_name = $5, is_required = $6,
			options = $7, help_text = $8, display_order = $9, updated_at = NOW()
		WHERE %s = $1 AND id = $2
		RETURNING created_at, updated_at`, r.t.table, r.t.ownerCol)

	err := r.db.QueryRow(ctx, query,
		*r.t.owner(f), f.ID, f.QuestionText, f.FieldType, f.FieldName, f.IsRequired,
		f.Options, f.HelpText, f.DisplayOrder,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: поле %q уже существует", ErrConflict, f.FieldName)
		}
		return fmt.Errorf("ошибка обновления поля %s: %w", r.t.table, err)
	}
	return nil
}

func (r *fieldRepo) Delete(ctx context.Context, ownerID, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND id = $2`, r.t.table, r.t.ownerCol)

	tag, err := r.db.Exec(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления поля %s: %w", r.t.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fieldRepo) GetOrCreate(ctx context.Context, f *model.FieldDefinition) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, question_text, field_type, field_name,
			is_required, options, help_text, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (%s, field_name) DO NOTHING
		RETURNING id, created_at, updated_at`, r.t.table, r.t.ownerCol, r.t.ownerCol)

	ownerID := *r.t.owner(f)
	err := r.db.QueryRow(ctx, query,
		ownerID, f.QuestionText, f.FieldType, f.FieldName,
		f.IsRequired, f.Options, f.HelpText, f.DisplayOrder,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("%w: владелец поля %d", ErrReference, ownerID)
		}
		return false, fmt.Errorf("ошибка get-or-create поля %s: %w", r.t.table, err)
	}

	// Конфликт: поле уже есть — возвращаем существующее без изменений.
	existing, err := r.GetByName(ctx, ownerID, f.FieldName)
	if err != nil {
		return false, err
	}
	*f = *existing
	return false, nil
}
