package model

import (
	"time"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
)

// FieldDefinition — поле анкеты, принадлежащее вакансии (job_requirements)
// или шаблону (template_fields). Ровно одно из JobID/TemplateID ненулевое.
type FieldDefinition struct {
	// ID — идентификатор поля
	ID int64
	// JobID — вакансия-владелец (0 для полей шаблона)
	JobID int64
	// TemplateID — шаблон-владелец (0 для полей вакансии)
	TemplateID int64

	formfield.Spec

	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// FieldPatch — частичное обновление поля. nil — без изменений.
type FieldPatch struct {
	QuestionText *string
	FieldType    *formfield.Type
	FieldName    *string
	IsRequired   *bool
	Options      *string
	HelpText     *string
	DisplayOrder *int
}

// Apply возвращает копию spec с применёнными изменениями.
func (p FieldPatch) Apply(spec formfield.Spec) formfield.Spec {
	if p.QuestionText != nil {
		spec.QuestionText = *p.QuestionText
	}
	if p.FieldType != nil {
		spec.FieldType = *p.FieldType
	}
	if p.FieldName != nil {
		spec.FieldName = *p.FieldName
	}
	if p.IsRequired != nil {
		spec.IsRequired = *p.IsRequired
	}
	if p.Options != nil {
		spec.Options = *p.Options
	}
	if p.HelpText != nil {
		spec.HelpText = *p.HelpText
	}
	if p.DisplayOrder != nil {
		spec.DisplayOrder = *p.DisplayOrder
	}
	return spec
}
