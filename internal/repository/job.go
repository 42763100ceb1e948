package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// JobRepository — CRUD для таблицы jobs.
type JobRepository interface {
	// Create создаёт вакансию.
	Create(ctx context.Context, j *model.Job) error
	// GetByID возвращает вакансию по ID.
	GetByID(ctx context.Context, id int64) (*model.Job, error)
	// GetForShare возвращает вакансию с блокировкой FOR SHARE (внутри транзакции).
	GetForShare(ctx context.Context, id int64) (*model.Job, error)
	// List возвращает вакансии по фильтру, новые первыми.
	List(ctx context.Context, f model.JobFilter) ([]*model.Job, error)
	// Count возвращает количество вакансий по фильтру.
	Count(ctx context.Context, f model.JobFilter) (int, error)
	// Update перезаписывает вакансию.
	Update(ctx context.Context, j *model.Job) error
	// Delete удаляет вакансию вместе с полями и заявками.
	Delete(ctx context.Context, id int64) error
}

type jobRepo struct {
	db DBTX
}

// NewJobRepository создаёт репозиторий вакансий.
func NewJobRepository(db DBTX) JobRepository {
	return &jobRepo{db: db}
}

const jobColumns = `id, title, company_name, location, job_type, description, skills_required,
	category, salary_range, experience_required, status, apply_deadline, is_featured,
	created_by, created_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	j := &model.Job{}
	err := row.Scan(
		&j.ID, &j.Title, &j.CompanyName, &j.Location, &j.JobType, &j.Description, &j.SkillsRequired,
		&j.Category, &j.SalaryRange, &j.ExperienceRequired, &j.Status, &j.ApplyDeadline, &j.IsFeatured,
		&j.CreatedBy, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

func (r *jobRepo) Create(ctx context.Context, j *model.Job) error {
	query := `
		INSERT INTO jobs (title, company_name, location, job_type, description, skills_required,
			category, salary_range, experience_required, status, apply_deadline, is_featured, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		j.Title, j.CompanyName, j.Location, j.JobType, j.Description, j.SkillsRequired,
		j.Category, j.SalaryRange, j.ExperienceRequired, j.Status, j.ApplyDeadline, j.IsFeatured, j.CreatedBy,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания вакансии: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	return r.get(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

func (r *jobRepo) GetForShare(ctx context.Context, id int64) (*model.Job, error) {
	return r.get(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR SHARE`, id)
}

func (r *jobRepo) get(ctx context.Context, query string, id int64) (*model.Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения вакансии: %w", err)
	}
	return j, nil
}

// likeEscaper экранирует метасимволы LIKE во вводе пользователя.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern — шаблон ILIKE «содержит подстроку».
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// jobWhere строит условие WHERE по фильтру.
// Возвращает условие, аргументы и номер следующего плейсхолдера.
func jobWhere(f model.JobFilter) (string, []any, int) {
	var conditions []string
	var args []any
	argNum := 1

	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *f.Status)
		argNum++
	}
	if f.JobType != nil {
		conditions = append(conditions, fmt.Sprintf("job_type = $%d", argNum))
		args = append(args, *f.JobType)
		argNum++
	}
	if f.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *f.Category)
		argNum++
	}
	if f.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", argNum))
		args = append(args, *f.Featured)
		argNum++
	}
	if l := strings.TrimSpace(f.Location); l != "" {
		conditions = append(conditions, fmt.Sprintf(`location ILIKE $%d ESCAPE '\'`, argNum))
		args = append(args, containsPattern(l))
		argNum++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(title ILIKE $%d ESCAPE '\' OR company_name ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`,
			argNum, argNum, argNum))
		args = append(args, containsPattern(s))
		argNum++
	}
	if f.ExcludeExpired {
		conditions = append(conditions, "apply_deadline > NOW()")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args, argNum
}

func (r *jobRepo) List(ctx context.Context, f model.JobFilter) ([]*model.Job, error) {
	where, args, argNum := jobWhere(f)

	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		%s
		ORDER BY is_featured DESC, created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, jobColumns, where, argNum, argNum+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка вакансий: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования вакансии: %w", err)
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

func (r *jobRepo) Count(ctx context.Context, f model.JobFilter) (int, error) {
	where, args, _ := jobWhere(f)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM jobs "+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта вакансий: %w", err)
	}
	return count, nil
}

func (r *jobRepo) Update(ctx context.Context, j *model.Job) error {
	query := `
		UPDATE jobs
		SET title = $2, company_name = $3, location = $4, job_type = $5, description = $6,
			skills_required = $7, category = $8, salary_range = $9, experience_required = $10,
			status = $11, apply_deadline = $12, is_featured = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		j.ID, j.Title, j.CompanyName, j.Location, j.JobType, j.Description,
		j.SkillsRequired, j.Category, j.SalaryRange, j.ExperienceRequired,
		j.Status, j.ApplyDeadline, j.IsFeatured,
	).Scan(&j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления вакансии: %w", err)
	}
	return nil
}

func (r *jobRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления вакансии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
