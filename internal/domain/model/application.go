package model

import (
	"time"

	"github.com/bigkaa/recruitart/internal/domain/appstatus"
	"github.com/bigkaa/recruitart/internal/domain/formfield"
)

// Application — заявка кандидата на вакансию. Хранится в applications.
// Обычным потоком не удаляется.
type Application struct {
	// ID — идентификатор заявки
	ID int64
	// JobID — вакансия
	JobID int64
	// ApplicantID — sub кандидата (nil для анонимной подачи)
	ApplicantID *string
	// FullName — имя кандидата
	FullName string
	// Email — контактный email
	Email string
	// Mobile — телефон
	Mobile string
	// ResumeFileName — имя файла резюме во внешнем хранилище
	ResumeFileName string
	// LinkedInURL — профиль LinkedIn
	LinkedInURL string
	// PortfolioURL — портфолио
	PortfolioURL string
	// ExpectedSalary — ожидаемая зарплата
	ExpectedSalary string
	// NoticePeriod — срок выхода
	NoticePeriod string
	// CoverLetter — сопроводительное письмо
	CoverLetter string
	// Status — статус рассмотрения
	Status appstatus.Status
	// AppliedAt — время подачи
	AppliedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
	// Answers — ответы на поля анкеты в порядке полей
	Answers []*Answer
}

// Links — непустые ссылки кандидата.
func (a *Application) Links() []string {
	var links []string
	if a.LinkedInURL != "" {
		links = append(links, a.LinkedInURL)
	}
	if a.PortfolioURL != "" {
		links = append(links, a.PortfolioURL)
	}
	return links
}

// Answer — ответ на одно поле вакансии. Хранится в application_responses.
// Поля вопроса подтягиваются из job_requirements при чтении.
type Answer struct {
	// ID — идентификатор ответа
	ID int64
	// ApplicationID — заявка
	ApplicationID int64
	// RequirementID — поле вакансии
	RequirementID int64
	// ResponseValue — значение ответа (строка)
	ResponseValue string
	// QuestionText — текст вопроса (read model)
	QuestionText string
	// FieldName — машинное имя поля (read model)
	FieldName string
	// FieldType — тип поля (read model)
	FieldType formfield.Type
}

// ApplicationFilter — параметры выборки заявок.
type ApplicationFilter struct {
	IDs         []int64
	JobID       *int64
	Status      *appstatus.Status
	ApplicantID *string
	Email       *string
	Limit       int
	Offset      int
}

// ApplicationExport — заявка с данными вакансии для выгрузки.
type ApplicationExport struct {
	Application
	// JobTitle — название вакансии
	JobTitle string
	// JobCategory — категория вакансии
	JobCategory JobCategory
}
