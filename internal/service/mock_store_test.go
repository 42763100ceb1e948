// mock_store_test.go — in-memory реализация repository.Store для unit-тестов.
// Транзакция — снимок состояния; при ошибке fn состояние восстанавливается.
package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/repository"
)

var (
	staffActor     = rbac.Actor{ID: "admin-1", Email: "admin@example.com", Role: rbac.RoleAdmin}
	superuserActor = rbac.Actor{ID: "root-1", Email: "root@example.com", Role: rbac.RoleSuperuser}
	userActor      = rbac.Actor{ID: "user-1", Email: "user@example.com", Role: rbac.RoleUser, Lang: "en"}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock store ---

type memState struct {
	jobs          map[int64]*model.Job
	requirements  map[int64]*model.FieldDefinition
	templates     map[int64]*model.Template
	tfields       map[int64]*model.FieldDefinition
	apps          map[int64]*model.Application
	notifications []*model.Notification
	overrides     map[string]*model.RoleOverride
}

// memDB — общее состояние всех mock-репозиториев.
type memDB struct {
	mu     sync.Mutex
	nextID int64
	clock  time.Time
	st     memState

	// notifyErr — ошибка, возвращаемая NotificationRepository.Create
	notifyErr error
}

func newMemDB() *memDB {
	return &memDB{
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		st: memState{
			jobs:         map[int64]*model.Job{},
			requirements: map[int64]*model.FieldDefinition{},
			templates:    map[int64]*model.Template{},
			tfields:      map[int64]*model.FieldDefinition{},
			apps:         map[int64]*model.Application{},
			overrides:    map[string]*model.RoleOverride{},
		},
	}
}

// next выдаёт ID и монотонное время. Вызывается под mu.
func (db *memDB) next() (int64, time.Time) {
	db.nextID++
	db.clock = db.clock.Add(time.Second)
	return db.nextID, db.clock
}

func (db *memDB) snapshot() memState {
	db.mu.Lock()
	defer db.mu.Unlock()

	s := memState{
		jobs:          make(map[int64]*model.Job, len(db.st.jobs)),
		requirements:  make(map[int64]*model.FieldDefinition, len(db.st.requirements)),
		templates:     make(map[int64]*model.Template, len(db.st.templates)),
		tfields:       make(map[int64]*model.FieldDefinition, len(db.st.tfields)),
		apps:          make(map[int64]*model.Application, len(db.st.apps)),
		notifications: append([]*model.Notification(nil), db.st.notifications...),
		overrides:     make(map[string]*model.RoleOverride, len(db.st.overrides)),
	}
	for k, v := range db.st.jobs {
		s.jobs[k] = copyJob(v)
	}
	for k, v := range db.st.requirements {
		s.requirements[k] = copyField(v)
	}
	for k, v := range db.st.templates {
		s.templates[k] = copyTemplate(v)
	}
	for k, v := range db.st.tfields {
		s.tfields[k] = copyField(v)
	}
	for k, v := range db.st.apps {
		s.apps[k] = copyApp(v, true)
	}
	for k, v := range db.st.overrides {
		cp := *v
		s.overrides[k] = &cp
	}
	return s
}

func (db *memDB) restore(s memState) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.st = s
}

func (db *memDB) store() *repository.Store {
	requirements := &memFieldRepo{
		db:    db,
		table: func(s *memState) map[int64]*model.FieldDefinition { return s.requirements },
		owner: func(f *model.FieldDefinition) int64 { return f.JobID },
	}
	templateFields := &memFieldRepo{
		db:    db,
		table: func(s *memState) map[int64]*model.FieldDefinition { return s.tfields },
		owner: func(f *model.FieldDefinition) int64 { return f.TemplateID },
	}
	return &repository.Store{
		Jobs:           &memJobRepo{db: db},
		Requirements:   requirements,
		Templates:      &memTemplateRepo{db: db},
		TemplateFields: templateFields,
		Applications:   &memAppRepo{db: db},
		Notifications:  &memNotificationRepo{db: db},
		RoleOverrides:  &memRoleOverrideRepo{db: db},
	}
}

// memTx — Transactor поверх memDB.
type memTx struct {
	db    *memDB
	calls int
}

func (t *memTx) InTx(_ context.Context, fn func(s *repository.Store) error) error {
	t.calls++
	snap := t.db.snapshot()
	if err := fn(t.db.store()); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// count возвращает размер таблицы под блокировкой.
func (db *memDB) count(table func(s *memState) int) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return table(&db.st)
}

func copyJob(j *model.Job) *model.Job {
	cp := *j
	return &cp
}

func copyField(f *model.FieldDefinition) *model.FieldDefinition {
	cp := *f
	return &cp
}

func copyTemplate(t *model.Template) *model.Template {
	cp := *t
	cp.Fields = nil
	return &cp
}

func copyApp(a *model.Application, withAnswers bool) *model.Application {
	cp := *a
	cp.Answers = nil
	if withAnswers {
		for _, ans := range a.Answers {
			ac := *ans
			cp.Answers = append(cp.Answers, &ac)
		}
	}
	return &cp
}

// --- Jobs ---

type memJobRepo struct{ db *memDB }

func (r *memJobRepo) Create(_ context.Context, j *model.Job) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	j.ID, j.CreatedAt = r.db.next()
	j.UpdatedAt = j.CreatedAt
	r.db.st.jobs[j.ID] = copyJob(j)
	return nil
}

func (r *memJobRepo) GetByID(_ context.Context, id int64) (*model.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	j, ok := r.db.st.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyJob(j), nil
}

func (r *memJobRepo) GetForShare(ctx context.Context, id int64) (*model.Job, error) {
	return r.GetByID(ctx, id)
}

func (r *memJobRepo) filter(f model.JobFilter) []*model.Job {
	var out []*model.Job
	for _, j := range r.db.st.jobs {
		if f.Status != nil && j.Status != *f.Status {
			continue
		}
		if f.Category != nil && j.Category != *f.Category {
			continue
		}
		out = append(out, copyJob(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return out
}

func (r *memJobRepo) List(_ context.Context, f model.JobFilter) ([]*model.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(f), nil
}

func (r *memJobRepo) Count(_ context.Context, f model.JobFilter) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.filter(f)), nil
}

func (r *memJobRepo) Update(_ context.Context, j *model.Job) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.jobs[j.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.st.jobs[j.ID] = copyJob(j)
	return nil
}

func (r *memJobRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.jobs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.jobs, id)
	for fid, f := range r.db.st.requirements {
		if f.JobID == id {
			delete(r.db.st.requirements, fid)
		}
	}
	for aid, a := range r.db.st.apps {
		if a.JobID == id {
			delete(r.db.st.apps, aid)
		}
	}
	return nil
}

// --- Fields ---

type memFieldRepo struct {
	db    *memDB
	table func(s *memState) map[int64]*model.FieldDefinition
	owner func(f *model.FieldDefinition) int64
}

func (r *memFieldRepo) List(_ context.Context, ownerID int64) ([]*model.FieldDefinition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.FieldDefinition
	for _, f := range r.table(&r.db.st) {
		if r.owner(f) == ownerID {
			out = append(out, copyField(f))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].DisplayOrder != out[b].DisplayOrder {
			return out[a].DisplayOrder < out[b].DisplayOrder
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (r *memFieldRepo) GetByID(_ context.Context, ownerID, id int64) (*model.FieldDefinition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.table(&r.db.st)[id]
	if !ok || r.owner(f) != ownerID {
		return nil, repository.ErrNotFound
	}
	return copyField(f), nil
}

func (r *memFieldRepo) findByName(ownerID int64, name string) *model.FieldDefinition {
	for _, f := range r.table(&r.db.st) {
		if r.owner(f) == ownerID && f.FieldName == name {
			return f
		}
	}
	return nil
}

func (r *memFieldRepo) GetByName(_ context.Context, ownerID int64, name string) (*model.FieldDefinition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f := r.findByName(ownerID, name)
	if f == nil {
		return nil, repository.ErrNotFound
	}
	return copyField(f), nil
}

func (r *memFieldRepo) Create(_ context.Context, f *model.FieldDefinition) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.findByName(r.owner(f), f.FieldName) != nil {
		return repository.ErrConflict
	}
	f.ID, f.CreatedAt = r.db.next()
	f.UpdatedAt = f.CreatedAt
	r.table(&r.db.st)[f.ID] = copyField(f)
	return nil
}

func (r *memFieldRepo) Update(_ context.Context, f *model.FieldDefinition) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.table(&r.db.st)[f.ID]; !ok {
		return repository.ErrNotFound
	}
	if other := r.findByName(r.owner(f), f.FieldName); other != nil && other.ID != f.ID {
		return repository.ErrConflict
	}
	r.table(&r.db.st)[f.ID] = copyField(f)
	return nil
}

func (r *memFieldRepo) Delete(_ context.Context, ownerID, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.table(&r.db.st)[id]
	if !ok || r.owner(f) != ownerID {
		return repository.ErrNotFound
	}
	delete(r.table(&r.db.st), id)
	// Каскад ответов на поле вакансии.
	for _, a := range r.db.st.apps {
		kept := a.Answers[:0]
		for _, ans := range a.Answers {
			if ans.RequirementID != id {
				kept = append(kept, ans)
			}
		}
		a.Answers = kept
	}
	return nil
}

func (r *memFieldRepo) GetOrCreate(_ context.Context, f *model.FieldDefinition) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing := r.findByName(r.owner(f), f.FieldName); existing != nil {
		*f = *copyField(existing)
		return false, nil
	}
	f.ID, f.CreatedAt = r.db.next()
	f.UpdatedAt = f.CreatedAt
	r.table(&r.db.st)[f.ID] = copyField(f)
	return true, nil
}

// --- Templates ---

type memTemplateRepo struct{ db *memDB }

func (r *memTemplateRepo) Create(_ context.Context, t *model.Template) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t.ID, t.CreatedAt = r.db.next()
	t.UpdatedAt = t.CreatedAt
	r.db.st.templates[t.ID] = copyTemplate(t)
	return nil
}

func (r *memTemplateRepo) GetByID(_ context.Context, id int64) (*model.Template, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.st.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTemplate(t), nil
}

func (r *memTemplateRepo) List(_ context.Context, isActive *bool) ([]*model.Template, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Template
	for _, t := range r.db.st.templates {
		if isActive != nil && t.IsActive != *isActive {
			continue
		}
		out = append(out, copyTemplate(t))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (r *memTemplateRepo) Update(_ context.Context, t *model.Template) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.templates[t.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.st.templates[t.ID] = copyTemplate(t)
	return nil
}

func (r *memTemplateRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.st.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsActive = active
	return nil
}

func (r *memTemplateRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.templates, id)
	for fid, f := range r.db.st.tfields {
		if f.TemplateID == id {
			delete(r.db.st.tfields, fid)
		}
	}
	return nil
}

// --- Applications ---

type memAppRepo struct{ db *memDB }

func (r *memAppRepo) Create(_ context.Context, a *model.Application) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.jobs[a.JobID]; !ok {
		return repository.ErrReference
	}
	if a.ApplicantID != nil {
		for _, other := range r.db.st.apps {
			if other.JobID == a.JobID && other.ApplicantID != nil && *other.ApplicantID == *a.ApplicantID {
				return repository.ErrConflict
			}
		}
	}
	a.ID, a.AppliedAt = r.db.next()
	a.UpdatedAt = a.AppliedAt
	for _, ans := range a.Answers {
		ans.ID, _ = r.db.next()
		ans.ApplicationID = a.ID
	}
	r.db.st.apps[a.ID] = copyApp(a, true)
	return nil
}

func (r *memAppRepo) GetByID(_ context.Context, id int64) (*model.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.st.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyApp(a, true), nil
}

func (r *memAppRepo) GetForUpdate(_ context.Context, id int64) (*model.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.st.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyApp(a, false), nil
}

func (r *memAppRepo) filter(f model.ApplicationFilter) []*model.Application {
	ids := make(map[int64]bool, len(f.IDs))
	for _, id := range f.IDs {
		ids[id] = true
	}
	var out []*model.Application
	for _, a := range r.db.st.apps {
		if len(ids) > 0 && !ids[a.ID] {
			continue
		}
		if f.JobID != nil && a.JobID != *f.JobID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.ApplicantID != nil || f.Email != nil {
			byID := f.ApplicantID != nil && a.ApplicantID != nil && *a.ApplicantID == *f.ApplicantID
			byEmail := f.Email != nil && strings.EqualFold(a.Email, *f.Email)
			if !byID && !byEmail {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (r *memAppRepo) List(_ context.Context, f model.ApplicationFilter) ([]*model.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Application
	for _, a := range r.filter(f) {
		out = append(out, copyApp(a, false))
	}
	return out, nil
}

func (r *memAppRepo) Count(_ context.Context, f model.ApplicationFilter) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f.Limit = 0
	return len(r.filter(f)), nil
}

func (r *memAppRepo) UpdateStatus(_ context.Context, a *model.Application) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.st.apps[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = a.Status
	_, stored.UpdatedAt = r.db.next()
	return nil
}

func (r *memAppRepo) ExistsForApplicant(_ context.Context, jobID int64, applicantID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.st.apps {
		if a.JobID == jobID && a.ApplicantID != nil && *a.ApplicantID == applicantID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAppRepo) ListForExport(_ context.Context, f model.ApplicationFilter) ([]*model.ApplicationExport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.ApplicationExport
	for _, a := range r.filter(f) {
		rec := &model.ApplicationExport{Application: *copyApp(a, true)}
		if j, ok := r.db.st.jobs[a.JobID]; ok {
			rec.JobTitle = j.Title
			rec.JobCategory = j.Category
		}
		out = append(out, rec)
	}
	return out, nil
}

// --- Notifications ---

type memNotificationRepo struct{ db *memDB }

func (r *memNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.notifyErr != nil {
		return r.db.notifyErr
	}
	n.ID, n.CreatedAt = r.db.next()
	cp := *n
	r.db.st.notifications = append(r.db.st.notifications, &cp)
	return nil
}

// --- Role overrides ---

type memRoleOverrideRepo struct{ db *memDB }

func (r *memRoleOverrideRepo) Upsert(_ context.Context, ro *model.RoleOverride) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, now := r.db.next()
	if existing, ok := r.db.st.overrides[ro.Subject]; ok {
		ro.CreatedAt = existing.CreatedAt
	} else {
		ro.CreatedAt = now
	}
	ro.UpdatedAt = now
	cp := *ro
	r.db.st.overrides[ro.Subject] = &cp
	return nil
}

func (r *memRoleOverrideRepo) Get(_ context.Context, subject string) (*model.RoleOverride, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ro, ok := r.db.st.overrides[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ro
	return &cp, nil
}

func (r *memRoleOverrideRepo) Delete(_ context.Context, subject string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.overrides[subject]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.overrides, subject)
	return nil
}

func (r *memRoleOverrideRepo) List(_ context.Context, limit, offset int) ([]*model.RoleOverride, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.RoleOverride
	for _, ro := range r.db.st.overrides {
		cp := *ro
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Subject < out[b].Subject })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Mock notifier ---

// mockNotifier запоминает события; accept == false имитирует переполненную очередь.
type mockNotifier struct {
	mu     sync.Mutex
	accept bool
	events []NotificationEvent
}

func (m *mockNotifier) Notify(ev NotificationEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.accept
}

// --- Фикстуры ---

// fixture — сервисы поверх общего memDB.
type fixture struct {
	db           *memDB
	tx           *memTx
	store        *repository.Store
	cache        *FieldSetCache
	notifier     *mockNotifier
	jobs         *JobService
	requirements *RequirementService
	templates    *TemplateService
	applications *ApplicationService
}

func newFixture() *fixture {
	db := newMemDB()
	fx := &fixture{
		db:       db,
		tx:       &memTx{db: db},
		store:    db.store(),
		cache:    NewFieldSetCache(16, time.Minute),
		notifier: &mockNotifier{accept: true},
	}
	logger := testLogger()
	fx.requirements = NewRequirementService(fx.store, fx.tx, fx.cache, logger)
	fx.jobs = NewJobService(fx.store, fx.requirements, logger)
	fx.templates = NewTemplateService(fx.store, fx.tx, fx.requirements, logger)
	fx.applications = NewApplicationService(fx.store, fx.tx, fx.notifier, ApplicationOptions{ExportMaxRows: 100}, logger)
	fx.applications.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return fx
}

// openJob создаёт активную вакансию с дедлайном после «текущего» времени сервиса.
func (fx *fixture) openJob(title string) *model.Job {
	j := &model.Job{
		Title:         title,
		CompanyName:   "Recruit Art",
		JobType:       model.JobTypeFullTime,
		Category:      model.JobCategoryClinician,
		Status:        model.JobStatusActive,
		ApplyDeadline: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := fx.store.Jobs.Create(context.Background(), j); err != nil {
		panic(err)
	}
	return j
}

// countRequirements — число полей вакансии в хранилище.
func (fx *fixture) countRequirements(jobID int64) int {
	return fx.db.count(func(s *memState) int {
		n := 0
		for _, f := range s.requirements {
			if f.JobID == jobID {
				n++
			}
		}
		return n
	})
}

func (fx *fixture) countApplications() int {
	return fx.db.count(func(s *memState) int { return len(s.apps) })
}
