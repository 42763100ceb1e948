// Пакет formfield — описание поля динамической анкеты: типы полей,
// инварианты определения поля, разбор вариантов ответа и типизированная
// интерпретация строкового ответа.
package formfield

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Type — тип поля анкеты.
type Type string

// Допустимые типы полей.
const (
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeNumber   Type = "number"
	TypeDate     Type = "date"
	TypeSelect   Type = "select"
	TypeCheckbox Type = "checkbox"
	TypeFile     Type = "file"
	TypeEmail    Type = "email"
)

// Ограничения длины атрибутов поля.
const (
	MaxQuestionTextLen = 500
	MaxFieldNameLen    = 100
	MaxHelpTextLen     = 255
)

var typeLabels = map[Type]string{
	TypeText:     "Text Input",
	TypeTextarea: "Text Area",
	TypeNumber:   "Number",
	TypeDate:     "Date",
	TypeSelect:   "Dropdown",
	TypeCheckbox: "Checkbox",
	TypeFile:     "File Upload",
	TypeEmail:    "Email",
}

// Types возвращает все типы полей в стабильном порядке.
func Types() []Type {
	return []Type{
		TypeText, TypeTextarea, TypeNumber, TypeDate,
		TypeSelect, TypeCheckbox, TypeFile, TypeEmail,
	}
}

// Valid сообщает, является ли t известным типом поля.
func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Label — человекочитаемое название типа.
func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// fieldNamePattern — машинное имя поля: буквы, цифры и подчёркивание,
// первым символом не может быть цифра.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Spec — содержательная часть определения поля, не зависящая от владельца
// (вакансия или шаблон).
type Spec struct {
	// QuestionText — текст вопроса, видимый кандидату
	QuestionText string
	// FieldType — тип поля
	FieldType Type
	// FieldName — машинное имя, уникальное в пределах владельца
	FieldName string
	// IsRequired — обязательность ответа
	IsRequired bool
	// Options — варианты через запятую (для select/checkbox)
	Options string
	// HelpText — подсказка под полем
	HelpText string
	// DisplayOrder — порядок отображения (>= 0)
	DisplayOrder int
}

// Normalize убирает пробелы по краям текстовых атрибутов.
func (s Spec) Normalize() Spec {
	s.QuestionText = strings.TrimSpace(s.QuestionText)
	s.FieldName = strings.TrimSpace(s.FieldName)
	s.HelpText = strings.TrimSpace(s.HelpText)
	s.Options = strings.TrimSpace(s.Options)
	return s
}

// OptionsList — разобранные варианты ответа.
func (s Spec) OptionsList() []string {
	return ParseOptions(s.Options)
}

// Коды предупреждений.
const (
	WarnOptionsEmpty = "options_empty"
	WarnTypeMismatch = "type_mismatch"
)

// Warning — некритичное замечание к полю или ответу.
type Warning struct {
	// Field — имя поля, к которому относится замечание
	Field string `json:"field"`
	// Code — машиночитаемый код
	Code string `json:"code"`
	// Message — описание
	Message string `json:"message"`
}

// ValidationError — ошибка валидации с привязкой к атрибутам.
// Fields: имя атрибута → описание проблемы.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "некорректное определение поля: " + strings.Join(parts, "; ")
}

// Validate проверяет инварианты определения поля.
// Пустые варианты у select — предупреждение, не ошибка.
func (s Spec) Validate() ([]Warning, error) {
	fields := make(map[string]string)

	switch n := utf8.RuneCountInString(s.QuestionText); {
	case strings.TrimSpace(s.QuestionText) == "":
		fields["question_text"] = "обязательное поле"
	case n > MaxQuestionTextLen:
		fields["question_text"] = fmt.Sprintf("не длиннее %d символов", MaxQuestionTextLen)
	}

	switch {
	case s.FieldName == "":
		fields["field_name"] = "обязательное поле"
	case utf8.RuneCountInString(s.FieldName) > MaxFieldNameLen:
		fields["field_name"] = fmt.Sprintf("не длиннее %d символов", MaxFieldNameLen)
	case !fieldNamePattern.MatchString(s.FieldName):
		fields["field_name"] = "допустимы латинские буквы, цифры и _, без цифры в начале"
	}

	if !s.FieldType.Valid() {
		fields["field_type"] = fmt.Sprintf("недопустимый тип %q", s.FieldType)
	}

	if utf8.RuneCountInString(s.HelpText) > MaxHelpTextLen {
		fields["help_text"] = fmt.Sprintf("не длиннее %d символов", MaxHelpTextLen)
	}

	if s.DisplayOrder < 0 {
		fields["display_order"] = "не может быть отрицательным"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var warnings []Warning
	if s.FieldType == TypeSelect && len(ParseOptions(s.Options)) == 0 {
		warnings = append(warnings, Warning{
			Field:   s.FieldName,
			Code:    WarnOptionsEmpty,
			Message: "у поля select не заданы варианты ответа",
		})
	}
	return warnings, nil
}

// ParseOptions разбирает строку вариантов через запятую.
// Каждый элемент обрезается по краям; пустая строка даёт пустой список.
// Экранирование запятых внутри варианта не поддерживается.
func ParseOptions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
