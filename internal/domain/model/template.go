package model

import "time"

// Template — шаблон набора полей. Хранится в requirement_templates.
// Деактивация скрывает шаблон из публичного списка, но не затрагивает
// уже материализованные поля вакансий.
type Template struct {
	// ID — идентификатор шаблона
	ID int64
	// Name — название шаблона
	Name string
	// Description — описание
	Description string
	// IsActive — шаблон доступен для применения
	IsActive bool
	// CreatedBy — sub создателя
	CreatedBy *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
	// Fields — поля шаблона, упорядоченные по (display_order, id)
	Fields []*FieldDefinition
}

// TemplatePatch — частичное обновление метаданных шаблона.
type TemplatePatch struct {
	Name        *string
	Description *string
	IsActive    *bool
}
