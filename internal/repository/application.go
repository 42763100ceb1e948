package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// ApplicationRepository — заявки и ответы на поля анкеты.
type ApplicationRepository interface {
	// Create сохраняет заявку и её ответы. Повторная заявка того же
	// кандидата на ту же вакансию — ErrConflict.
	Create(ctx context.Context, a *model.Application) error
	// GetByID возвращает заявку с ответами.
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	// GetForUpdate возвращает заявку (без ответов) с блокировкой FOR UPDATE.
	GetForUpdate(ctx context.Context, id int64) (*model.Application, error)
	// List возвращает заявки по фильтру (без ответов), новые первыми.
	List(ctx context.Context, f model.ApplicationFilter) ([]*model.Application, error)
	// Count возвращает количество заявок по фильтру.
	Count(ctx context.Context, f model.ApplicationFilter) (int, error)
	// UpdateStatus меняет статус заявки.
	UpdateStatus(ctx context.Context, a *model.Application) error
	// ExistsForApplicant проверяет, подавал ли кандидат заявку на вакансию.
	ExistsForApplicant(ctx context.Context, jobID int64, applicantID string) (bool, error)
	// ListForExport возвращает заявки с ответами и данными вакансии.
	ListForExport(ctx context.Context, f model.ApplicationFilter) ([]*model.ApplicationExport, error)
}

type applicationRepo struct {
	db DBTX
}

// NewApplicationRepository создаёт репозиторий заявок.
func NewApplicationRepository(db DBTX) ApplicationRepository {
	return &applicationRepo{db: db}
}

const applicationColumns = `a.id, a.job_id, a.applicant_id, a.full_name, a.email, a.mobile,
	a.resume_file_name, a.linkedin_url, a.portfolio_url, a.expected_salary, a.notice_period,
	a.cover_letter, a.status, a.applied_at, a.updated_at`

func applicationDest(a *model.Application) []any {
	return []any{
		&a.ID, &a.JobID, &a.ApplicantID, &a.FullName, &a.Email, &a.Mobile,
		&a.ResumeFileName, &a.LinkedInURL, &a.PortfolioURL, &a.ExpectedSalary, &a.NoticePeriod,
		&a.CoverLetter, &a.Status, &a.AppliedAt, &a.UpdatedAt,
	}
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	a := &model.Application{}
	err := row.Scan(applicationDest(a)...)
	return a, err
}

func (r *applicationRepo) Create(ctx context.Context, a *model.Application) error {
	query := `
		INSERT INTO applications (job_id, applicant_id, full_name, email, mobile, resume_file_name,
			linkedin_url, portfolio_url, expected_salary, notice_period, cover_letter, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, applied_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.JobID, a.ApplicantID, a.FullName, a.Email, a.Mobile, a.ResumeFileName,
		a.LinkedInURL, a.PortfolioURL, a.ExpectedSalary, a.NoticePeriod, a.CoverLetter, a.Status,
	).Scan(&a.ID, &a.AppliedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: заявка на вакансию %d уже подана", ErrConflict, a.JobID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: вакансия %d", ErrReference, a.JobID)
		}
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}

	if len(a.Answers) == 0 {
		return nil
	}

	// Ответы — одним батчем.
	batch := &pgx.Batch{}
	for _, ans := range a.Answers {
		ans.ApplicationID = a.ID
		batch.Queue(`
			INSERT INTO application_responses (application_id, requirement_id, response_value)
			VALUES ($1, $2, $3)
			RETURNING id`, a.ID, ans.RequirementID, ans.ResponseValue)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, ans := range a.Answers {
		if err := br.QueryRow().Scan(&ans.ID); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: поле %d", ErrReference, ans.RequirementID)
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: повторный ответ на поле %d", ErrConflict, ans.RequirementID)
			}
			return fmt.Errorf("ошибка сохранения ответа: %w", err)
		}
	}
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	a, err := r.get(ctx, `SELECT `+applicationColumns+` FROM applications a WHERE a.id = $1`, id)
	if err != nil {
		return nil, err
	}

	answers, err := r.loadAnswers(ctx, []int64{a.ID})
	if err != nil {
		return nil, err
	}
	a.Answers = answers[a.ID]
	return a, nil
}

func (r *applicationRepo) GetForUpdate(ctx context.Context, id int64) (*model.Application, error) {
	return r.get(ctx, `SELECT `+applicationColumns+` FROM applications a WHERE a.id = $1 FOR UPDATE`, id)
}

func (r *applicationRepo) get(ctx context.Context, query string, id int64) (*model.Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return a, nil
}

// loadAnswers загружает ответы заявок, сгруппированные по application_id.
// Ответы упорядочены по (display_order, id) поля вакансии.
func (r *applicationRepo) loadAnswers(ctx context.Context, ids []int64) (map[int64][]*model.Answer, error) {
	result := make(map[int64][]*model.Answer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT ar.id, ar.application_id, ar.requirement_id, ar.response_value,
			jr.question_text, jr.field_name, jr.field_type
		FROM application_responses ar
		JOIN job_requirements jr ON jr.id = ar.requirement_id
		WHERE ar.application_id = ANY($1)
		ORDER BY ar.application_id, jr.display_order, jr.id`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ответов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ans := &model.Answer{}
		if err := rows.Scan(&ans.ID, &ans.ApplicationID, &ans.RequirementID, &ans.ResponseValue,
			&ans.QuestionText, &ans.FieldName, &ans.FieldType); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ответа: %w", err)
		}
		result[ans.ApplicationID] = append(result[ans.ApplicationID], ans)
	}
	return result, rows.Err()
}

// applicationWhere строит условие WHERE по фильтру (алиас таблицы — a).
func applicationWhere(f model.ApplicationFilter) (string, []any, int) {
	var conditions []string
	var args []any
	argNum := 1

	if len(f.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("a.id = ANY($%d)", argNum))
		args = append(args, f.IDs)
		argNum++
	}
	if f.JobID != nil {
		conditions = append(conditions, fmt.Sprintf("a.job_id = $%d", argNum))
		args = append(args, *f.JobID)
		argNum++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argNum))
		args = append(args, *f.Status)
		argNum++
	}
	if f.ApplicantID != nil && f.Email != nil {
		// Свои заявки: по sub или по совпадению email.
		conditions = append(conditions, fmt.Sprintf(
			"(a.applicant_id = $%d OR lower(a.email) = lower($%d))", argNum, argNum+1))
		args = append(args, *f.ApplicantID, *f.Email)
		argNum += 2
	} else if f.ApplicantID != nil {
		conditions = append(conditions, fmt.Sprintf("a.applicant_id = $%d", argNum))
		args = append(args, *f.ApplicantID)
		argNum++
	} else if f.Email != nil {
		conditions = append(conditions, fmt.Sprintf("lower(a.email) = lower($%d)", argNum))
		args = append(args, *f.Email)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args, argNum
}

func (r *applicationRepo) List(ctx context.Context, f model.ApplicationFilter) ([]*model.Application, error) {
	where, args, argNum := applicationWhere(f)

	query := fmt.Sprintf(`
		SELECT %s
		FROM applications a
		%s
		ORDER BY a.applied_at DESC, a.id DESC
		LIMIT $%d OFFSET $%d`, applicationColumns, where, argNum, argNum+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *applicationRepo) Count(ctx context.Context, f model.ApplicationFilter) (int, error) {
	where, args, _ := applicationWhere(f)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM applications a "+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта заявок: %w", err)
	}
	return count, nil
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, a *model.Application) error {
	err := r.db.QueryRow(ctx, `
		UPDATE applications SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`, a.ID, a.Status).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления статуса заявки: %w", err)
	}
	return nil
}

func (r *applicationRepo) ExistsForApplicant(ctx context.Context, jobID int64, applicantID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND applicant_id = $2)`,
		jobID, applicantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки повторной заявки: %w", err)
	}
	return exists, nil
}

func (r *applicationRepo) ListForExport(ctx context.Context, f model.ApplicationFilter) ([]*model.ApplicationExport, error) {
	where, args, argNum := applicationWhere(f)

	query := fmt.Sprintf(`
		SELECT %s, j.title, j.category
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		%s
		ORDER BY a.applied_at DESC, a.id DESC
		LIMIT $%d`, applicationColumns, where, argNum)
	args = append(args, f.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки заявок для экспорта: %w", err)
	}
	defer rows.Close()

	result := make([]*model.ApplicationExport, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		e := &model.ApplicationExport{}
		dest := append(applicationDest(&e.Application), &e.JobTitle, &e.JobCategory)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки для экспорта: %w", err)
		}
		result = append(result, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	answers, err := r.loadAnswers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range result {
		e.Answers = answers[e.ID]
	}
	return result, nil
}
