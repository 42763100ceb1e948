package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/recruitart/internal/domain/answer"
	"github.com/bigkaa/recruitart/internal/domain/appstatus"
	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
)

func submitInput(jobID int64, responses ...answer.Input) SubmitInput {
	return SubmitInput{
		JobID:     jobID,
		FullName:  "Jane Doe",
		Email:     "jane@example.com",
		Responses: responses,
	}
}

// jobWithQuestions — вакансия с полями q1 (обязательное) и q2 (необязательное).
func jobWithQuestions(t *testing.T, fx *fixture) *model.Job {
	t.Helper()
	job := fx.openJob("Nurse")
	for _, s := range []formfield.Spec{spec("q1", 0, true), spec("q2", 1, false)} {
		if _, err := fx.requirements.Add(context.Background(), staffActor, job.ID, s); err != nil {
			t.Fatalf("Add(%s) ошибка: %v", s.FieldName, err)
		}
	}
	return job
}

func TestApplicationService_SubmitRequiredness(t *testing.T) {
	tests := []struct {
		name        string
		responses   []answer.Input
		wantErr     error
		wantAnswers int
		wantMissing string
	}{
		{
			name:        "только обязательный ответ",
			responses:   []answer.Input{{Key: "q1", Value: "x"}},
			wantAnswers: 1,
		},
		{
			name:        "нет обязательного ответа",
			responses:   []answer.Input{{Key: "q2", Value: "y"}},
			wantErr:     answer.ErrMissingRequiredField,
			wantMissing: "q1",
		},
		{
			name:        "обязательный ответ из пробелов",
			responses:   []answer.Input{{Key: "q1", Value: "   "}},
			wantErr:     answer.ErrMissingRequiredField,
			wantMissing: "q1",
		},
		{
			name:        "неизвестные ключи игнорируются",
			responses:   []answer.Input{{Key: "q1", Value: "x"}, {Key: "unknown", Value: "z"}},
			wantAnswers: 1,
		},
		{
			name:        "оба ответа",
			responses:   []answer.Input{{Key: "q2", Value: "y"}, {Key: "q1", Value: "x"}},
			wantAnswers: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			job := jobWithQuestions(t, fx)

			res, err := fx.applications.Submit(context.Background(), rbac.Anonymous, submitInput(job.ID, tt.responses...))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrValidation) {
					t.Fatalf("ошибка = %v, хотели %v", err, tt.wantErr)
				}
				var verr *answer.ValidationError
				if !errors.As(err, &verr) || len(verr.Missing) != 1 || verr.Missing[0] != tt.wantMissing {
					t.Errorf("Missing = %+v, хотели [%s]", verr, tt.wantMissing)
				}
				if n := fx.countApplications(); n != 0 {
					t.Errorf("заявок сохранено = %d, хотели 0", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("Submit ошибка: %v", err)
			}

			stored, err := fx.store.Applications.GetByID(context.Background(), res.Application.ID)
			if err != nil {
				t.Fatalf("GetByID ошибка: %v", err)
			}
			if len(stored.Answers) != tt.wantAnswers {
				t.Errorf("ответов = %d, хотели %d", len(stored.Answers), tt.wantAnswers)
			}
			if stored.Answers[0].FieldName != "q1" {
				t.Errorf("ответы должны идти в порядке полей: %s", stored.Answers[0].FieldName)
			}
			if stored.Status != appstatus.Pending {
				t.Errorf("Status = %s, хотели pending", stored.Status)
			}
		})
	}
}

func TestApplicationService_SubmitIgnoredReported(t *testing.T) {
	fx := newFixture()
	job := jobWithQuestions(t, fx)

	res, err := fx.applications.Submit(context.Background(), rbac.Anonymous,
		submitInput(job.ID, answer.Input{Key: "q1", Value: "x"}, answer.Input{Key: "nope", Value: "z"}))
	if err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	if len(res.Ignored) != 1 || res.Ignored[0] != "nope" {
		t.Errorf("Ignored = %v", res.Ignored)
	}
}

func TestApplicationService_SubmitJobState(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	closed := fx.openJob("Closed")
	status := model.JobStatusClosed
	if _, err := fx.jobs.Update(ctx, staffActor, closed.ID, JobPatch{Status: &status}); err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}

	expired := fx.openJob("Expired")
	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := fx.jobs.Update(ctx, staffActor, expired.ID, JobPatch{ApplyDeadline: &past}); err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}

	tests := []struct {
		name    string
		jobID   int64
		wantErr error
	}{
		{"вакансия закрыта", closed.ID, ErrJobClosed},
		{"срок подачи истёк", expired.ID, ErrJobClosed},
		{"вакансия не найдена", 9999, ErrJobNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.applications.Submit(ctx, rbac.Anonymous, submitInput(tt.jobID))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ошибка = %v, хотели %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplicationService_SubmitApplicantValidation(t *testing.T) {
	fx := newFixture()
	job := fx.openJob("Nurse")

	in := submitInput(job.ID)
	in.Email = "not-an-email"
	in.FullName = ""
	_, err := fx.applications.Submit(context.Background(), rbac.Anonymous, in)

	var ferr *FieldError
	if !errors.As(err, &ferr) {
		t.Fatalf("ожидается *FieldError, получили %v", err)
	}
	for _, key := range []string{"email", "full_name"} {
		if _, ok := ferr.Fields[key]; !ok {
			t.Errorf("нет ошибки по %s: %v", key, ferr.Fields)
		}
	}
}

func TestApplicationService_SubmitDuplicate(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := jobWithQuestions(t, fx)
	in := submitInput(job.ID, answer.Input{Key: "q1", Value: "x"})

	res, err := fx.applications.Submit(ctx, userActor, in)
	if err != nil {
		t.Fatalf("первая подача: %v", err)
	}
	if res.Application.ApplicantID == nil || *res.Application.ApplicantID != userActor.ID {
		t.Errorf("ApplicantID = %v", res.Application.ApplicantID)
	}

	_, err = fx.applications.Submit(ctx, userActor, in)
	if !errors.Is(err, ErrDuplicateApplication) || !errors.Is(err, ErrConflict) {
		t.Errorf("ожидается ErrDuplicateApplication, получили %v", err)
	}

	// Анонимные подачи повтором не считаются.
	for i := 0; i < 2; i++ {
		if _, err := fx.applications.Submit(ctx, rbac.Anonymous, in); err != nil {
			t.Fatalf("анонимная подача %d: %v", i, err)
		}
	}
	if n := fx.countApplications(); n != 3 {
		t.Errorf("заявок = %d, хотели 3", n)
	}

	// Уведомление только автору с учётной записью.
	if len(fx.notifier.events) != 1 {
		t.Fatalf("событий = %d, хотели 1", len(fx.notifier.events))
	}
	ev := fx.notifier.events[0]
	if ev.Type != model.NotificationApplicationSubmitted || ev.UserID != userActor.ID || ev.JobTitle != "Nurse" {
		t.Errorf("событие = %+v", ev)
	}
}

func TestApplicationService_NurseTemplateScenario(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	fx.db.nextID = 41
	job := fx.openJob("Nurse")
	if job.ID != 42 {
		t.Fatalf("job.ID = %d, хотели 42", job.ID)
	}

	tplID := createTemplate(t, fx, "Nurse Template", true, formfield.Spec{
		QuestionText: "Shift preference",
		FieldType:    formfield.TypeSelect,
		FieldName:    "shift_preference",
		IsRequired:   true,
		Options:      "Day, Night",
	})
	applied, err := fx.templates.ApplyToJob(ctx, staffActor, tplID, job.ID)
	if err != nil {
		t.Fatalf("ApplyToJob ошибка: %v", err)
	}
	if applied.Created != 1 {
		t.Fatalf("Created = %d, хотели 1", applied.Created)
	}

	res, err := fx.applications.Submit(ctx, rbac.Anonymous,
		submitInput(job.ID, answer.Input{Key: "Shift preference", Value: "Night"}))
	if err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %+v", res.Warnings)
	}

	app, err := fx.store.Applications.GetByID(ctx, res.Application.ID)
	if err != nil {
		t.Fatalf("GetByID ошибка: %v", err)
	}
	if len(app.Answers) != 1 {
		t.Fatalf("ответов = %d, хотели 1", len(app.Answers))
	}
	a := app.Answers[0]
	if a.ResponseValue != "Night" || a.RequirementID != applied.Fields[0].ID || a.QuestionText != "Shift preference" {
		t.Errorf("ответ = %+v", a)
	}
}

func TestApplicationService_UpdateStatus(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := jobWithQuestions(t, fx)

	res, err := fx.applications.Submit(ctx, userActor, submitInput(job.ID, answer.Input{Key: "q1", Value: "x"}))
	if err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	id := res.Application.ID
	fx.notifier.events = nil

	for _, step := range []struct{ from, to appstatus.Status }{
		{appstatus.Pending, appstatus.Hired},
		{appstatus.Hired, appstatus.Pending},
	} {
		app, err := fx.applications.UpdateStatus(ctx, staffActor, id, string(step.to))
		if err != nil {
			t.Fatalf("%s → %s: %v", step.from, step.to, err)
		}
		if app.Status != step.to || len(app.Answers) != 1 {
			t.Errorf("после %s → %s: status=%s answers=%d", step.from, step.to, app.Status, len(app.Answers))
		}
	}

	if len(fx.notifier.events) != 2 {
		t.Fatalf("событий = %d, хотели 2", len(fx.notifier.events))
	}
	first, second := fx.notifier.events[0], fx.notifier.events[1]
	if first.OldStatus != appstatus.Pending || first.NewStatus != appstatus.Hired {
		t.Errorf("первое событие = %+v", first)
	}
	if second.OldStatus != appstatus.Hired || second.NewStatus != appstatus.Pending {
		t.Errorf("второе событие = %+v", second)
	}

	// Очередь уведомлений переполнена: статус всё равно сохраняется.
	fx.notifier.accept = false
	app, err := fx.applications.UpdateStatus(ctx, staffActor, id, "reviewing")
	if err != nil {
		t.Fatalf("UpdateStatus при отказе уведомления: %v", err)
	}
	if app.Status != appstatus.Reviewing {
		t.Errorf("Status = %s, хотели reviewing", app.Status)
	}
}

func TestApplicationService_UpdateStatusErrors(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := fx.openJob("Nurse")
	res, err := fx.applications.Submit(ctx, rbac.Anonymous, submitInput(job.ID))
	if err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}

	tests := []struct {
		name    string
		actor   rbac.Actor
		id      int64
		status  string
		wantErr error
	}{
		{"неизвестный статус", staffActor, res.Application.ID, "archived", ErrValidation},
		{"заявка не найдена", staffActor, 9999, "hired", ErrApplicationNotFound},
		{"не администратор", userActor, res.Application.ID, "hired", ErrPermissionDenied},
		{"анонимный", rbac.Anonymous, res.Application.ID, "hired", ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.applications.UpdateStatus(ctx, tt.actor, tt.id, tt.status)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ошибка = %v, хотели %v", err, tt.wantErr)
			}
		})
	}

	// Анонимная заявка: уведомлять некого.
	if _, err := fx.applications.UpdateStatus(ctx, staffActor, res.Application.ID, "hired"); err != nil {
		t.Fatalf("UpdateStatus ошибка: %v", err)
	}
	if len(fx.notifier.events) != 0 {
		t.Errorf("событий = %d, хотели 0", len(fx.notifier.events))
	}
}

func TestApplicationService_StrictPolicy(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	fx.applications.opts.Policy = appstatus.Policy{Strict: true}
	job := fx.openJob("Nurse")
	res, err := fx.applications.Submit(ctx, userActor, submitInput(job.ID))
	if err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	fx.notifier.events = nil

	if _, err := fx.applications.UpdateStatus(ctx, staffActor, res.Application.ID, "hired"); !errors.Is(err, ErrValidation) {
		t.Errorf("pending → hired в строгом режиме: %v", err)
	}
	if _, err := fx.applications.UpdateStatus(ctx, staffActor, res.Application.ID, "reviewing"); err != nil {
		t.Errorf("pending → reviewing в строгом режиме: %v", err)
	}
	// Отклонённый переход не уведомляет кандидата.
	if len(fx.notifier.events) != 1 {
		t.Fatalf("событий = %d, хотели 1", len(fx.notifier.events))
	}
	last := fx.notifier.events[0]
	if last.OldStatus != appstatus.Pending || last.NewStatus != appstatus.Reviewing {
		t.Errorf("уведомление %s → %s, хотели pending → reviewing", last.OldStatus, last.NewStatus)
	}
}

func TestApplicationService_GetAccess(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := fx.openJob("Nurse")
	res, err := fx.applications.Submit(ctx, userActor, submitInput(job.ID))
	if err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	id := res.Application.ID

	stranger := rbac.Actor{ID: "user-2", Email: "other@example.com", Role: rbac.RoleUser}
	sameEmail := rbac.Actor{ID: "user-3", Email: "JANE@example.com", Role: rbac.RoleUser}

	tests := []struct {
		name    string
		actor   rbac.Actor
		email   string
		wantErr error
	}{
		{"администратор", staffActor, "", nil},
		{"автор", userActor, "", nil},
		{"email из токена совпадает", sameEmail, "", nil},
		{"анонимный с email", rbac.Anonymous, "Jane@Example.com", nil},
		{"анонимный без email", rbac.Anonymous, "", ErrPermissionDenied},
		{"чужой пользователь", stranger, "", ErrPermissionDenied},
		{"анонимный с чужим email", rbac.Anonymous, "x@example.com", ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.applications.Get(ctx, tt.actor, id, tt.email)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ошибка = %v, хотели %v", err, tt.wantErr)
			}
		})
	}

	if _, err := fx.applications.Get(ctx, staffActor, 9999, ""); !errors.Is(err, ErrApplicationNotFound) {
		t.Errorf("несуществующая заявка: %v", err)
	}
}

func TestApplicationService_ListScopes(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	job := fx.openJob("Nurse")
	other := fx.openJob("Driver")

	if _, err := fx.applications.Submit(ctx, userActor, submitInput(job.ID)); err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	anon := submitInput(other.ID)
	anon.Email = "anon@example.com"
	if _, err := fx.applications.Submit(ctx, rbac.Anonymous, anon); err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}

	all, total, err := fx.applications.List(ctx, staffActor, model.ApplicationFilter{}, "")
	if err != nil || total != 2 || len(all) != 2 {
		t.Errorf("администратор: total=%d len=%d err=%v", total, len(all), err)
	}

	own, total, _ := fx.applications.List(ctx, userActor, model.ApplicationFilter{}, "anon@example.com")
	if total != 1 || own[0].JobID != job.ID {
		t.Errorf("пользователь видит только свои: total=%d", total)
	}

	byEmail, total, _ := fx.applications.List(ctx, rbac.Anonymous, model.ApplicationFilter{}, "anon@example.com")
	if total != 1 || byEmail[0].JobID != other.ID {
		t.Errorf("анонимный по email: total=%d", total)
	}

	if _, _, err := fx.applications.List(ctx, rbac.Anonymous, model.ApplicationFilter{}, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("анонимный без email: %v", err)
	}

	byJob, total, err := fx.applications.ListByJob(ctx, staffActor, other.ID, model.ApplicationFilter{})
	if err != nil || total != 1 || byJob[0].JobID != other.ID {
		t.Errorf("ListByJob: total=%d err=%v", total, err)
	}
	if _, _, err := fx.applications.ListByJob(ctx, staffActor, 9999, model.ApplicationFilter{}); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("ListByJob несуществующей вакансии: %v", err)
	}
}

func TestApplicationService_Export(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	nurse := fx.openJob("Nurse")
	driver := fx.openJob("Driver")
	if _, err := fx.requirements.Add(ctx, staffActor, nurse.ID, formfield.Spec{
		QuestionText: "Shift preference", FieldType: formfield.TypeText, FieldName: "shift",
	}); err != nil {
		t.Fatalf("Add ошибка: %v", err)
	}
	if _, err := fx.requirements.Add(ctx, staffActor, driver.ID, formfield.Spec{
		QuestionText: "License class", FieldType: formfield.TypeText, FieldName: "license",
	}); err != nil {
		t.Fatalf("Add ошибка: %v", err)
	}
	if _, err := fx.applications.Submit(ctx, rbac.Anonymous, submitInput(nurse.ID, answer.Input{Key: "shift", Value: "Night"})); err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}
	if _, err := fx.applications.Submit(ctx, rbac.Anonymous, submitInput(driver.ID, answer.Input{Key: "license", Value: "C"})); err != nil {
		t.Fatalf("Submit ошибка: %v", err)
	}

	if _, err := fx.applications.Export(ctx, userActor, model.ApplicationFilter{}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("выгрузка не администратором: %v", err)
	}

	table, err := fx.applications.Export(ctx, staffActor, model.ApplicationFilter{})
	if err != nil {
		t.Fatalf("Export ошибка: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("строк = %d, хотели 2", len(table.Rows))
	}
	dynamic := table.Header[len(table.Header)-2:]
	if dynamic[0] != "License class" || dynamic[1] != "Shift preference" {
		t.Errorf("динамические колонки = %v", dynamic)
	}

	fx.applications.opts.ExportMaxRows = 1
	table, _ = fx.applications.Export(ctx, staffActor, model.ApplicationFilter{})
	if len(table.Rows) != 1 {
		t.Errorf("ограничение строк: %d, хотели 1", len(table.Rows))
	}
}
