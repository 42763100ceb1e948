// jobs.go — сервис вакансий: минимальный CRUD, необходимый для владения
// наборами полей и заявками.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/repository"
)

// JobInput — данные для создания вакансии.
type JobInput struct {
	Title              string
	CompanyName        string
	Location           string
	JobType            model.JobType
	Description        string
	SkillsRequired     string
	Category           model.JobCategory
	SalaryRange        string
	ExperienceRequired string
	Status             model.JobStatus
	ApplyDeadline      time.Time
	IsFeatured         bool
}

// JobPatch — частичное обновление вакансии. nil — без изменений.
type JobPatch struct {
	Title              *string
	CompanyName        *string
	Location           *string
	JobType            *model.JobType
	Description        *string
	SkillsRequired     *string
	Category           *model.JobCategory
	SalaryRange        *string
	ExperienceRequired *string
	Status             *model.JobStatus
	ApplyDeadline      *time.Time
	IsFeatured         *bool
}

// JobWithFields — вакансия вместе с набором полей анкеты.
type JobWithFields struct {
	*model.Job
	Fields []*model.FieldDefinition
}

// JobService — сервис вакансий.
type JobService struct {
	store  *repository.Store
	fields *RequirementService
	logger *slog.Logger
}

// NewJobService создаёт сервис вакансий.
func NewJobService(store *repository.Store, fields *RequirementService, logger *slog.Logger) *JobService {
	return &JobService{
		store:  store,
		fields: fields,
		logger: logger.With(slog.String("component", "job_service")),
	}
}

// List возвращает вакансии и общее количество.
// Без фильтра по статусу показываются активные; не-администраторы
// видят только активные вакансии.
func (s *JobService) List(ctx context.Context, actor rbac.Actor, f model.JobFilter) ([]*model.Job, int, error) {
	if f.Status == nil || !actor.IsStaff() {
		active := model.JobStatusActive
		f.Status = &active
	}

	jobs, err := s.store.Jobs.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка вакансий: %w", err)
	}
	total, err := s.store.Jobs.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт вакансий: %w", err)
	}
	return jobs, total, nil
}

// Get возвращает вакансию с набором полей.
// Черновики видны только администраторам.
func (s *JobService) Get(ctx context.Context, actor rbac.Actor, id int64) (*JobWithFields, error) {
	job, err := s.store.Jobs.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrJobNotFound, "получение вакансии")
	}
	if !visibleTo(actor, job) {
		return nil, ErrJobNotFound
	}

	fields, err := s.fields.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobWithFields{Job: job, Fields: fields}, nil
}

// visibleTo — черновик вакансии существует только для администраторов.
func visibleTo(actor rbac.Actor, job *model.Job) bool {
	return job.Status != model.JobStatusDraft || actor.IsStaff()
}

// Create создаёт вакансию.
func (s *JobService) Create(ctx context.Context, actor rbac.Actor, in JobInput) (*model.Job, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	job := &model.Job{
		Title:              strings.TrimSpace(in.Title),
		CompanyName:        strings.TrimSpace(in.CompanyName),
		Location:           strings.TrimSpace(in.Location),
		JobType:            in.JobType,
		Description:        in.Description,
		SkillsRequired:     in.SkillsRequired,
		Category:           in.Category,
		SalaryRange:        in.SalaryRange,
		ExperienceRequired: in.ExperienceRequired,
		Status:             in.Status,
		ApplyDeadline:      in.ApplyDeadline,
		IsFeatured:         in.IsFeatured,
		CreatedBy:          actor.Subject(),
	}
	if job.JobType == "" {
		job.JobType = model.JobTypeFullTime
	}
	if job.Category == "" {
		job.Category = model.JobCategoryOther
	}
	if job.Status == "" {
		job.Status = model.JobStatusDraft
	}

	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.store.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("сохранение вакансии: %w", err)
	}

	s.logger.Info("Вакансия создана",
		slog.Int64("job_id", job.ID),
		slog.String("title", job.Title),
		slog.String("created_by", actor.ID),
	)
	return job, nil
}

// Update применяет частичное обновление вакансии.
func (s *JobService) Update(ctx context.Context, actor rbac.Actor, id int64, p JobPatch) (*model.Job, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	job, err := s.store.Jobs.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrJobNotFound, "получение вакансии")
	}

	applyJobPatch(job, p)
	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.store.Jobs.Update(ctx, job); err != nil {
		return nil, mapRepoErr(err, ErrJobNotFound, "обновление вакансии")
	}

	s.logger.Info("Вакансия обновлена",
		slog.Int64("job_id", job.ID),
		slog.String("status", string(job.Status)),
	)
	return job, nil
}

// Delete удаляет вакансию вместе с полями, заявками и ответами.
func (s *JobService) Delete(ctx context.Context, actor rbac.Actor, id int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.store.Jobs.Delete(ctx, id); err != nil {
		return mapRepoErr(err, ErrJobNotFound, "удаление вакансии")
	}
	s.fields.invalidate(id)

	s.logger.Info("Вакансия удалена", slog.Int64("job_id", id), slog.String("deleted_by", actor.ID))
	return nil
}

func applyJobPatch(job *model.Job, p JobPatch) {
	if p.Title != nil {
		job.Title = strings.TrimSpace(*p.Title)
	}
	if p.CompanyName != nil {
		job.CompanyName = strings.TrimSpace(*p.CompanyName)
	}
	if p.Location != nil {
		job.Location = strings.TrimSpace(*p.Location)
	}
	if p.JobType != nil {
		job.JobType = *p.JobType
	}
	if p.Description != nil {
		job.Description = *p.Description
	}
	if p.SkillsRequired != nil {
		job.SkillsRequired = *p.SkillsRequired
	}
	if p.Category != nil {
		job.Category = *p.Category
	}
	if p.SalaryRange != nil {
		job.SalaryRange = *p.SalaryRange
	}
	if p.ExperienceRequired != nil {
		job.ExperienceRequired = *p.ExperienceRequired
	}
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.ApplyDeadline != nil {
		job.ApplyDeadline = *p.ApplyDeadline
	}
	if p.IsFeatured != nil {
		job.IsFeatured = *p.IsFeatured
	}
}

func validateJob(job *model.Job) error {
	fields := make(map[string]string)

	switch {
	case job.Title == "":
		fields["title"] = "обязательное поле"
	case utf8.RuneCountInString(job.Title) > 255:
		fields["title"] = "не длиннее 255 символов"
	}
	switch {
	case job.CompanyName == "":
		fields["company_name"] = "обязательное поле"
	case utf8.RuneCountInString(job.CompanyName) > 255:
		fields["company_name"] = "не длиннее 255 символов"
	}
	if utf8.RuneCountInString(job.Location) > 255 {
		fields["location"] = "не длиннее 255 символов"
	}
	if !model.ValidJobType(job.JobType) {
		fields["job_type"] = fmt.Sprintf("недопустимое значение %q", job.JobType)
	}
	if !model.ValidJobCategory(job.Category) {
		fields["category"] = fmt.Sprintf("недопустимое значение %q", job.Category)
	}
	if !model.ValidJobStatus(job.Status) {
		fields["status"] = fmt.Sprintf("недопустимое значение %q", job.Status)
	}
	if job.ApplyDeadline.IsZero() {
		fields["apply_deadline"] = "обязательное поле"
	}
	if utf8.RuneCountInString(job.SalaryRange) > 100 {
		fields["salary_range"] = "не длиннее 100 символов"
	}
	if utf8.RuneCountInString(job.ExperienceRequired) > 100 {
		fields["experience_required"] = "не длиннее 100 символов"
	}

	if len(fields) > 0 {
		return &FieldError{Fields: fields}
	}
	return nil
}
