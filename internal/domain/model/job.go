// Пакет model — доменные модели Recruit API.
package model

import "time"

// JobStatus — статус публикации вакансии.
type JobStatus string

// Статусы вакансии.
const (
	JobStatusDraft  JobStatus = "draft"
	JobStatusActive JobStatus = "active"
	JobStatusClosed JobStatus = "closed"
)

// JobType — тип занятости.
type JobType string

// Типы занятости.
const (
	JobTypeFullTime   JobType = "full_time"
	JobTypeInternship JobType = "internship"
	JobTypeContract   JobType = "contract"
	JobTypePartTime   JobType = "part_time"
)

// JobCategory — категория вакансии.
type JobCategory string

// Категории вакансий.
const (
	JobCategoryClinician    JobCategory = "clinician"
	JobCategoryNonClinician JobCategory = "non_clinician"
	JobCategoryOther        JobCategory = "other"
)

// Job — вакансия. Хранится в таблице jobs.
type Job struct {
	// ID — идентификатор вакансии
	ID int64
	// Title — название позиции
	Title string
	// CompanyName — работодатель
	CompanyName string
	// Location — место работы
	Location string
	// JobType — тип занятости
	JobType JobType
	// Description — описание
	Description string
	// SkillsRequired — требуемые навыки (свободный текст)
	SkillsRequired string
	// Category — категория (clinician, non_clinician, other)
	Category JobCategory
	// SalaryRange — вилка зарплаты
	SalaryRange string
	// ExperienceRequired — требуемый опыт
	ExperienceRequired string
	// Status — статус публикации
	Status JobStatus
	// ApplyDeadline — крайний срок подачи заявок
	ApplyDeadline time.Time
	// IsFeatured — выделенная вакансия
	IsFeatured bool
	// CreatedBy — sub создателя (nil для импортированных)
	CreatedBy *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// IsOpen — вакансия принимает заявки: активна и срок не истёк.
func (j *Job) IsOpen(now time.Time) bool {
	return j.Status == JobStatusActive && now.Before(j.ApplyDeadline)
}

// ValidJobStatus проверяет допустимость статуса вакансии.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusDraft, JobStatusActive, JobStatusClosed:
		return true
	}
	return false
}

// ValidJobType проверяет допустимость типа занятости.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeFullTime, JobTypeInternship, JobTypeContract, JobTypePartTime:
		return true
	}
	return false
}

// ValidJobCategory проверяет допустимость категории.
func ValidJobCategory(c JobCategory) bool {
	switch c {
	case JobCategoryClinician, JobCategoryNonClinician, JobCategoryOther:
		return true
	}
	return false
}

// JobFilter — параметры выборки вакансий.
// Location и Search — подстроки без учёта регистра.
type JobFilter struct {
	Status         *JobStatus
	JobType        *JobType
	Category       *JobCategory
	Featured       *bool
	Location       string
	Search         string
	ExcludeExpired bool
	Limit          int
	Offset         int
}
