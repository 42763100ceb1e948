// applications.go — сервис заявок кандидатов.
// Подача (одна транзакция: блокировка вакансии, проверка повтора,
// перечитывание набора полей, проверка ответов, запись), смена статуса,
// чтение и выгрузка. Уведомления отправляются после фиксации транзакции.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bigkaa/recruitart/internal/domain/answer"
	"github.com/bigkaa/recruitart/internal/domain/appstatus"
	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/export"
	"github.com/bigkaa/recruitart/internal/repository"
)

// SubmitInput — данные заявки от кандидата.
type SubmitInput struct {
	JobID          int64
	FullName       string
	Email          string
	Mobile         string
	ResumeFileName string
	LinkedInURL    string
	PortfolioURL   string
	ExpectedSalary string
	NoticePeriod   string
	CoverLetter    string
	// Responses — ответы на поля анкеты
	Responses []answer.Input
}

// SubmitResult — сохранённая заявка и замечания проверки ответов.
type SubmitResult struct {
	Application *model.Application
	Warnings    []formfield.Warning
	// Ignored — ключи ответов, не относящиеся к полям вакансии
	Ignored []string
}

// ApplicationOptions — настройки сервиса заявок.
type ApplicationOptions struct {
	// StrictTypes — несоответствие типу ответа отклоняет заявку
	StrictTypes bool
	// ExportMaxRows — предел строк выгрузки
	ExportMaxRows int
	// Policy — политика смены статусов (нулевое значение — без ограничений)
	Policy appstatus.Policy
}

// ApplicationService — сервис заявок.
type ApplicationService struct {
	store    *repository.Store
	tx       Transactor
	notifier Notifier
	opts     ApplicationOptions
	now      func() time.Time
	logger   *slog.Logger
}

// NewApplicationService создаёт сервис заявок.
func NewApplicationService(
	store *repository.Store,
	tx Transactor,
	notifier Notifier,
	opts ApplicationOptions,
	logger *slog.Logger,
) *ApplicationService {
	return &ApplicationService{
		store:    store,
		tx:       tx,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "application_service")),
	}
}

// Submit сохраняет заявку с ответами на поля вакансии.
func (s *ApplicationService) Submit(ctx context.Context, actor rbac.Actor, in SubmitInput) (*SubmitResult, error) {
	app := &model.Application{
		JobID:          in.JobID,
		ApplicantID:    actor.Subject(),
		FullName:       strings.TrimSpace(in.FullName),
		Email:          strings.TrimSpace(in.Email),
		Mobile:         strings.TrimSpace(in.Mobile),
		ResumeFileName: strings.TrimSpace(in.ResumeFileName),
		LinkedInURL:    strings.TrimSpace(in.LinkedInURL),
		PortfolioURL:   strings.TrimSpace(in.PortfolioURL),
		ExpectedSalary: strings.TrimSpace(in.ExpectedSalary),
		NoticePeriod:   strings.TrimSpace(in.NoticePeriod),
		CoverLetter:    in.CoverLetter,
		Status:         appstatus.Initial,
	}
	if err := validateApplicant(app); err != nil {
		applicationsRejectedTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	var (
		result   = &SubmitResult{Application: app}
		jobTitle string
	)
	err := s.tx.InTx(ctx, func(st *repository.Store) error {
		job, err := st.Jobs.GetForShare(ctx, in.JobID)
		if err != nil {
			return mapRepoErr(err, ErrJobNotFound, "получение вакансии")
		}
		if !job.IsOpen(s.now()) {
			return ErrJobClosed
		}
		jobTitle = job.Title

		if actor.IsAuthenticated() {
			exists, err := st.Applications.ExistsForApplicant(ctx, job.ID, actor.ID)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateApplication
			}
		}

		// Набор полей перечитывается здесь: кэш может отставать.
		fields, err := st.Requirements.List(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("получение набора полей: %w", err)
		}

		res := answer.Validate(fields, in.Responses, answer.Options{StrictTypes: s.opts.StrictTypes})
		if err := res.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err) //nolint:errorlint // намеренный двойной wrap
		}
		result.Warnings = res.Warnings
		result.Ignored = res.Ignored

		app.Answers = make([]*model.Answer, 0, len(res.Accepted))
		for _, a := range res.Accepted {
			app.Answers = append(app.Answers, &model.Answer{
				RequirementID: a.Field.ID,
				ResponseValue: a.Value,
				QuestionText:  a.Field.QuestionText,
				FieldName:     a.Field.FieldName,
				FieldType:     a.Field.FieldType,
			})
		}

		if err := st.Applications.Create(ctx, app); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateApplication
			}
			return mapRepoErr(err, ErrJobNotFound, "сохранение заявки")
		}
		return nil
	})
	if err != nil {
		applicationsRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	applicationsSubmittedTotal.Inc()
	s.logger.Info("Заявка подана",
		slog.Int64("application_id", app.ID),
		slog.Int64("job_id", app.JobID),
		slog.Int("answers", len(app.Answers)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Bool("anonymous", app.ApplicantID == nil),
	)

	if app.ApplicantID != nil {
		s.notify(NotificationEvent{
			Type:          model.NotificationApplicationSubmitted,
			UserID:        *app.ApplicantID,
			Lang:          actor.Lang,
			JobTitle:      jobTitle,
			ApplicationID: app.ID,
		})
	}
	return result, nil
}

// UpdateStatus меняет статус заявки и уведомляет кандидата.
// Сбой уведомления не влияет на сохранённый статус.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor rbac.Actor, id int64, raw string) (*model.Application, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	to, err := appstatus.Parse(raw)
	if err != nil {
		return nil, &FieldError{Fields: map[string]string{"status": err.Error()}}
	}

	var (
		app      *model.Application
		record   appstatus.TransitionRecord
		jobTitle string
	)
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		app, err = st.Applications.GetForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrApplicationNotFound, "получение заявки")
		}
		rec, trErr := s.opts.Policy.Transition(app.Status, to, actor.ID)
		if trErr != nil {
			return &FieldError{Fields: map[string]string{"status": trErr.Error()}}
		}
		record = rec

		job, err := st.Jobs.GetByID(ctx, app.JobID)
		if err != nil {
			return mapRepoErr(err, ErrJobNotFound, "получение вакансии")
		}
		jobTitle = job.Title

		app.Status = to
		if err := st.Applications.UpdateStatus(ctx, app); err != nil {
			return mapRepoErr(err, ErrApplicationNotFound, "обновление статуса заявки")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applicationStatusChangesTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("Статус заявки изменён",
		slog.Int64("application_id", id),
		slog.String("from", string(record.From)),
		slog.String("to", string(record.To)),
		slog.String("changed_by", record.Subject),
		slog.Time("changed_at", record.Timestamp),
		slog.Bool("strict", s.opts.Policy.Strict),
	)

	if app.ApplicantID != nil {
		s.notify(NotificationEvent{
			Type:          model.NotificationApplicationStatus,
			UserID:        *app.ApplicantID,
			JobTitle:      jobTitle,
			ApplicationID: app.ID,
			OldStatus:     record.From,
			NewStatus:     record.To,
		})
	}

	full, err := s.store.Applications.GetByID(ctx, id)
	if err != nil {
		// Статус уже сохранён; отдаём то, что есть.
		s.logger.Warn("Не удалось перечитать заявку после смены статуса",
			slog.Int64("application_id", id),
			slog.String("error", err.Error()),
		)
		return app, nil
	}
	return full, nil
}

// Get возвращает заявку с ответами.
// Доступ: администратор, автор заявки или любой, кто знает email заявки.
func (s *ApplicationService) Get(ctx context.Context, actor rbac.Actor, id int64, email string) (*model.Application, error) {
	app, err := s.store.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrApplicationNotFound, "получение заявки")
	}
	if !canRead(actor, app, email) {
		return nil, fmt.Errorf("%w: нет доступа к заявке", ErrPermissionDenied)
	}
	return app, nil
}

// List возвращает заявки по фильтру и общее количество.
// Администратор видит все; пользователь — свои (по sub или email из токена);
// анонимный посетитель — только по email.
func (s *ApplicationService) List(ctx context.Context, actor rbac.Actor, f model.ApplicationFilter, email string) ([]*model.Application, int, error) {
	switch {
	case actor.IsStaff():
	case actor.IsAuthenticated():
		id := actor.ID
		f.ApplicantID = &id
		f.Email = nil
		if actor.Email != "" {
			e := actor.Email
			f.Email = &e
		}
	default:
		email = strings.TrimSpace(email)
		if email == "" {
			return nil, 0, fmt.Errorf("%w: укажите email или выполните вход", ErrUnauthenticated)
		}
		f.ApplicantID = nil
		f.Email = &email
	}

	apps, err := s.store.Applications.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка заявок: %w", err)
	}
	total, err := s.store.Applications.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт заявок: %w", err)
	}
	return apps, total, nil
}

// ListByJob возвращает заявки вакансии (только для администраторов).
func (s *ApplicationService) ListByJob(ctx context.Context, actor rbac.Actor, jobID int64, f model.ApplicationFilter) ([]*model.Application, int, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	if _, err := s.store.Jobs.GetByID(ctx, jobID); err != nil {
		return nil, 0, mapRepoErr(err, ErrJobNotFound, "получение вакансии")
	}
	f.JobID = &jobID
	return s.List(ctx, actor, f, "")
}

// Export выгружает заявки в плоскую таблицу.
// Количество строк ограничено ExportMaxRows.
func (s *ApplicationService) Export(ctx context.Context, actor rbac.Actor, f model.ApplicationFilter) (*export.Table, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	f.Limit = s.opts.ExportMaxRows
	f.Offset = 0

	records, err := s.store.Applications.ListForExport(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("выборка заявок для экспорта: %w", err)
	}

	table := export.Flatten(records)
	exportRowsTotal.Add(float64(len(table.Rows)))
	s.logger.Info("Выгрузка заявок",
		slog.Int("rows", len(table.Rows)),
		slog.Int("question_columns", len(table.Header)-len(export.FixedColumns)),
		slog.String("exported_by", actor.ID),
	)
	return table, nil
}

// notify передаёт событие диспетчеру; отброшенное событие только логируется.
func (s *ApplicationService) notify(ev NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if !s.notifier.Notify(ev) {
		s.logger.Warn("Уведомление не поставлено в очередь",
			slog.Int64("application_id", ev.ApplicationID),
			slog.String("type", string(ev.Type)),
		)
	}
}

func canRead(actor rbac.Actor, app *model.Application, email string) bool {
	if actor.IsStaff() {
		return true
	}
	if actor.IsAuthenticated() && app.ApplicantID != nil && *app.ApplicantID == actor.ID {
		return true
	}
	if actor.IsAuthenticated() && actor.Email != "" && strings.EqualFold(actor.Email, app.Email) {
		return true
	}
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(email, app.Email)
}

func validateApplicant(app *model.Application) error {
	fields := make(map[string]string)

	switch {
	case app.FullName == "":
		fields["full_name"] = "обязательное поле"
	case utf8.RuneCountInString(app.FullName) > 255:
		fields["full_name"] = "не длиннее 255 символов"
	}

	switch {
	case app.Email == "":
		fields["email"] = "обязательное поле"
	case utf8.RuneCountInString(app.Email) > 254:
		fields["email"] = "не длиннее 254 символов"
	default:
		if addr, err := mail.ParseAddress(app.Email); err != nil || addr.Address != app.Email {
			fields["email"] = "некорректный email"
		}
	}

	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"mobile", app.Mobile, 20},
		{"resume_file_name", app.ResumeFileName, 255},
		{"linkedin_url", app.LinkedInURL, 500},
		{"portfolio_url", app.PortfolioURL, 500},
		{"expected_salary", app.ExpectedSalary, 100},
		{"notice_period", app.NoticePeriod, 100},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			fields[l.name] = fmt.Sprintf("не длиннее %d символов", l.max)
		}
	}

	if len(fields) > 0 {
		return &FieldError{Fields: fields}
	}
	return nil
}

// rejectReason — метка метрики для отклонённой заявки.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrJobClosed):
		return "job_closed"
	case errors.Is(err, ErrDuplicateApplication):
		return "duplicate"
	case errors.Is(err, answer.ErrMissingRequiredField):
		return "missing_required"
	case errors.Is(err, formfield.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
