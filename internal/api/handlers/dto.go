// dto.go — JSON-представления запросов и ответов API.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
)

// --- Поля анкеты ---

// fieldRequest — тело POST/PUT поля (полное определение).
type fieldRequest struct {
	QuestionText string         `json:"question_text"`
	FieldType    formfield.Type `json:"field_type"`
	FieldName    string         `json:"field_name"`
	IsRequired   bool           `json:"is_required"`
	Options      string         `json:"options"`
	HelpText     string         `json:"help_text"`
	DisplayOrder int            `json:"display_order"`
}

func (f fieldRequest) spec() formfield.Spec {
	return formfield.Spec{
		QuestionText: f.QuestionText,
		FieldType:    f.FieldType,
		FieldName:    f.FieldName,
		IsRequired:   f.IsRequired,
		Options:      f.Options,
		HelpText:     f.HelpText,
		DisplayOrder: f.DisplayOrder,
	}
}

// fieldPatchRequest — тело PATCH поля.
type fieldPatchRequest struct {
	QuestionText *string         `json:"question_text"`
	FieldType    *formfield.Type `json:"field_type"`
	FieldName    *string         `json:"field_name"`
	IsRequired   *bool           `json:"is_required"`
	Options      *string         `json:"options"`
	HelpText     *string         `json:"help_text"`
	DisplayOrder *int            `json:"display_order"`
}

func (p fieldPatchRequest) patch() model.FieldPatch {
	return model.FieldPatch{
		QuestionText: p.QuestionText,
		FieldType:    p.FieldType,
		FieldName:    p.FieldName,
		IsRequired:   p.IsRequired,
		Options:      p.Options,
		HelpText:     p.HelpText,
		DisplayOrder: p.DisplayOrder,
	}
}

// fieldResponse — поле анкеты в ответе.
type fieldResponse struct {
	ID             int64          `json:"id"`
	JobID          *int64         `json:"job_id,omitempty"`
	TemplateID     *int64         `json:"template_id,omitempty"`
	QuestionText   string         `json:"question_text"`
	FieldType      formfield.Type `json:"field_type"`
	FieldTypeLabel string         `json:"field_type_display"`
	FieldName      string         `json:"field_name"`
	IsRequired     bool           `json:"is_required"`
	Options        string         `json:"options"`
	OptionsList    []string       `json:"options_list"`
	HelpText       string         `json:"help_text"`
	DisplayOrder   int            `json:"display_order"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func mapField(f *model.FieldDefinition) fieldResponse {
	resp := fieldResponse{
		ID:             f.ID,
		QuestionText:   f.QuestionText,
		FieldType:      f.FieldType,
		FieldTypeLabel: f.FieldType.Label(),
		FieldName:      f.FieldName,
		IsRequired:     f.IsRequired,
		Options:        f.Options,
		OptionsList:    f.OptionsList(),
		HelpText:       f.HelpText,
		DisplayOrder:   f.DisplayOrder,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if f.JobID != 0 {
		id := f.JobID
		resp.JobID = &id
	}
	if f.TemplateID != 0 {
		id := f.TemplateID
		resp.TemplateID = &id
	}
	return resp
}

func mapFields(fields []*model.FieldDefinition) []fieldResponse {
	out := make([]fieldResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, mapField(f))
	}
	return out
}

// --- Вакансии ---

// jobRequest — тело POST /jobs.
type jobRequest struct {
	Title              string             `json:"title"`
	CompanyName        string             `json:"company_name"`
	Location           string             `json:"location"`
	JobType            model.JobType      `json:"job_type"`
	Description        string             `json:"description"`
	SkillsRequired     string             `json:"skills_required"`
	Category           model.JobCategory  `json:"category"`
	SalaryRange        string             `json:"salary_range"`
	ExperienceRequired string             `json:"experience_required"`
	Status             model.JobStatus    `json:"status"`
	ApplyDeadline      openapi_types.Date `json:"apply_deadline"`
	IsFeatured         bool               `json:"is_featured"`
}

// jobPatchRequest — тело PATCH /jobs/{id}.
type jobPatchRequest struct {
	Title              *string             `json:"title"`
	CompanyName        *string             `json:"company_name"`
	Location           *string             `json:"location"`
	JobType            *model.JobType      `json:"job_type"`
	Description        *string             `json:"description"`
	SkillsRequired     *string             `json:"skills_required"`
	Category           *model.JobCategory  `json:"category"`
	SalaryRange        *string             `json:"salary_range"`
	ExperienceRequired *string             `json:"experience_required"`
	Status             *model.JobStatus    `json:"status"`
	ApplyDeadline      *openapi_types.Date `json:"apply_deadline"`
	IsFeatured         *bool               `json:"is_featured"`
}

// jobResponse — вакансия в ответе.
type jobResponse struct {
	ID                 int64              `json:"id"`
	Title              string             `json:"title"`
	CompanyName        string             `json:"company_name"`
	Location           string             `json:"location"`
	JobType            model.JobType      `json:"job_type"`
	Description        string             `json:"description"`
	SkillsRequired     string             `json:"skills_required"`
	Category           model.JobCategory  `json:"category"`
	SalaryRange        string             `json:"salary_range"`
	ExperienceRequired string             `json:"experience_required"`
	Status             model.JobStatus    `json:"status"`
	ApplyDeadline      openapi_types.Date `json:"apply_deadline"`
	IsFeatured         bool               `json:"is_featured"`
	IsOpen             bool               `json:"is_open"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Requirements       []fieldResponse    `json:"requirements,omitempty"`
}

func mapJob(j *model.Job, now time.Time) jobResponse {
	return jobResponse{
		ID:                 j.ID,
		Title:              j.Title,
		CompanyName:        j.CompanyName,
		Location:           j.Location,
		JobType:            j.JobType,
		Description:        j.Description,
		SkillsRequired:     j.SkillsRequired,
		Category:           j.Category,
		SalaryRange:        j.SalaryRange,
		ExperienceRequired: j.ExperienceRequired,
		Status:             j.Status,
		ApplyDeadline:      openapi_types.Date{Time: j.ApplyDeadline},
		IsFeatured:         j.IsFeatured,
		IsOpen:             j.IsOpen(now),
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
	}
}

// --- Шаблоны ---

// templateRequest — тело POST /requirements/templates.
type templateRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IsActive    *bool          `json:"is_active"`
	Fields      []fieldRequest `json:"fields"`
}

// templatePatchRequest — тело PUT/PATCH /requirements/templates/{id}.
type templatePatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// applyTemplateRequest — тело POST /requirements/templates/{id}/apply_to_job.
type applyTemplateRequest struct {
	JobID int64 `json:"job_id"`
}

// templateResponse — шаблон в ответе.
type templateResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsActive    bool            `json:"is_active"`
	FieldsCount int             `json:"fields_count"`
	Fields      []fieldResponse `json:"fields"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func mapTemplate(t *model.Template) templateResponse {
	return templateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		IsActive:    t.IsActive,
		FieldsCount: len(t.Fields),
		Fields:      mapFields(t.Fields),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// --- Заявки ---

// responseInput — ответ на поле в теле заявки.
// requirement — ID поля, field_name или текст вопроса.
type responseInput struct {
	Requirement   requirementKey `json:"requirement"`
	ResponseValue string         `json:"response_value"`
}

// submitRequest — тело POST /applications.
type submitRequest struct {
	Job            int64           `json:"job"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	Mobile         string          `json:"mobile"`
	ResumeFileName string          `json:"resume_file_name"`
	LinkedInURL    string          `json:"linkedin_url"`
	PortfolioURL   string          `json:"portfolio_url"`
	ExpectedSalary string          `json:"expected_salary"`
	NoticePeriod   string          `json:"notice_period"`
	CoverLetter    string          `json:"cover_letter"`
	Responses      []responseInput `json:"responses"`
}

// statusRequest — тело POST/PATCH /applications/{id}/status.
type statusRequest struct {
	Status string `json:"status"`
}

// answerResponse — ответ на поле в представлении заявки.
type answerResponse struct {
	ID            int64          `json:"id"`
	Requirement   int64          `json:"requirement"`
	QuestionText  string         `json:"question_text"`
	FieldName     string         `json:"field_name"`
	FieldType     formfield.Type `json:"field_type"`
	ResponseValue string         `json:"response_value"`
}

// applicationResponse — заявка в ответе.
type applicationResponse struct {
	ID             int64            `json:"id"`
	Job            int64            `json:"job"`
	ApplicantID    *string          `json:"applicant_id"`
	FullName       string           `json:"full_name"`
	Email          string           `json:"email"`
	Mobile         string           `json:"mobile"`
	ResumeFileName string           `json:"resume_file_name"`
	LinkedInURL    string           `json:"linkedin_url"`
	PortfolioURL   string           `json:"portfolio_url"`
	ExpectedSalary string           `json:"expected_salary"`
	NoticePeriod   string           `json:"notice_period"`
	CoverLetter    string           `json:"cover_letter"`
	Status         string           `json:"status"`
	AppliedAt      time.Time        `json:"applied_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Responses      []answerResponse `json:"responses"`
}

func mapApplication(a *model.Application) applicationResponse {
	resp := applicationResponse{
		ID:             a.ID,
		Job:            a.JobID,
		ApplicantID:    a.ApplicantID,
		FullName:       a.FullName,
		Email:          a.Email,
		Mobile:         a.Mobile,
		ResumeFileName: a.ResumeFileName,
		LinkedInURL:    a.LinkedInURL,
		PortfolioURL:   a.PortfolioURL,
		ExpectedSalary: a.ExpectedSalary,
		NoticePeriod:   a.NoticePeriod,
		CoverLetter:    a.CoverLetter,
		Status:         string(a.Status),
		AppliedAt:      a.AppliedAt,
		UpdatedAt:      a.UpdatedAt,
		Responses:      make([]answerResponse, 0, len(a.Answers)),
	}
	for _, ans := range a.Answers {
		resp.Responses = append(resp.Responses, answerResponse{
			ID:            ans.ID,
			Requirement:   ans.RequirementID,
			QuestionText:  ans.QuestionText,
			FieldName:     ans.FieldName,
			FieldType:     ans.FieldType,
			ResponseValue: ans.ResponseValue,
		})
	}
	return resp
}

func mapApplications(apps []*model.Application) []applicationResponse {
	out := make([]applicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, mapApplication(a))
	}
	return out
}

// --- Role overrides ---

// roleOverrideRequest — тело PUT /admin/role-overrides/{subject}.
type roleOverrideRequest struct {
	Role string `json:"role"`
}

// roleOverrideResponse — role override в ответе.
type roleOverrideResponse struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func mapRoleOverride(ro *model.RoleOverride) roleOverrideResponse {
	return roleOverrideResponse{
		Subject:   ro.Subject,
		Role:      ro.AdditionalRole,
		CreatedBy: ro.CreatedBy,
		CreatedAt: ro.CreatedAt,
		UpdatedAt: ro.UpdatedAt,
	}
}

// listMeta — сведения о пагинации.
type listMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
