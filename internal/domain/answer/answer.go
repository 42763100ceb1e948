// Пакет answer — проверка ответов кандидата на набор полей вакансии.
//
// Правила:
//   - ключ ответа сопоставляется с полем по ID, затем по field_name,
//     затем по точному тексту вопроса; учитывается первый непустой ответ на поле;
//   - числовой ключ, совпавший с ID поля, всегда означает это поле,
//     даже если у другого поля такой же текст вопроса;
//   - обязательное поле без ответа или с пустым ответом — ошибка;
//   - ответы на неизвестные ключи отбрасываются без ошибки;
//   - пустые ответы на необязательные поля не сохраняются;
//   - несоответствие типу — предупреждение, в строгом режиме — ошибка.
package answer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
)

// ErrMissingRequiredField — не заполнено обязательное поле.
var ErrMissingRequiredField = errors.New("не заполнено обязательное поле")

// Input — один ответ из запроса кандидата.
type Input struct {
	// Key — ID поля, field_name или текст вопроса
	Key string
	// Value — значение ответа
	Value string
}

// Options — параметры проверки.
type Options struct {
	// StrictTypes — несоответствие типу считается ошибкой
	StrictTypes bool
}

// Accepted — принятый ответ, готовый к сохранению.
type Accepted struct {
	Field *model.FieldDefinition
	// Value — значение без пробелов по краям
	Value string
	// Typed — типизированная интерпретация (если удалась)
	Typed formfield.Value
}

// Result — итог проверки.
type Result struct {
	// Accepted — ответы в порядке полей
	Accepted []Accepted
	// Warnings — замечания по типам значений
	Warnings []formfield.Warning
	// Ignored — ключи, не соответствующие ни одному полю, и повторы
	Ignored []string
	// Missing — имена незаполненных обязательных полей
	Missing []string
	// TypeErrors — field_name → описание (только в строгом режиме)
	TypeErrors map[string]string
}

// Err возвращает *ValidationError, если ответы нельзя сохранить.
func (r *Result) Err() error {
	if len(r.Missing) == 0 && len(r.TypeErrors) == 0 {
		return nil
	}
	fields := make(map[string]string, len(r.Missing)+len(r.TypeErrors))
	for name, msg := range r.TypeErrors {
		fields[name] = msg
	}
	for _, name := range r.Missing {
		fields[name] = "обязательное поле"
	}
	return &ValidationError{Fields: fields, Missing: r.Missing}
}

// ValidationError — ответы не прошли проверку.
type ValidationError struct {
	// Fields — field_name → описание проблемы
	Fields map[string]string
	// Missing — незаполненные обязательные поля в порядке набора
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 && len(e.Fields) == len(e.Missing) {
		return fmt.Sprintf("%s: %s", ErrMissingRequiredField, strings.Join(e.Missing, ", "))
	}
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+e.Fields[n])
	}
	return "ответы не прошли проверку: " + strings.Join(parts, "; ")
}

// Is позволяет проверять errors.Is(err, ErrMissingRequiredField)
// и errors.Is(err, formfield.ErrTypeMismatch).
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrMissingRequiredField:
		return len(e.Missing) > 0
	case formfield.ErrTypeMismatch:
		return len(e.Fields) > len(e.Missing)
	}
	return false
}

// Validate сверяет ответы с набором полей.
// fields может быть в любом порядке; результат упорядочен по (display_order, id).
func Validate(fields []*model.FieldDefinition, inputs []Input, opts Options) *Result {
	ordered := make([]*model.FieldDefinition, len(fields))
	copy(ordered, fields)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DisplayOrder != ordered[j].DisplayOrder {
			return ordered[i].DisplayOrder < ordered[j].DisplayOrder
		}
		return ordered[i].ID < ordered[j].ID
	})

	idx := newIndex(ordered)
	res := &Result{}

	answered := make(map[int64]string, len(inputs))
	for _, in := range inputs {
		f := idx.resolve(in.Key)
		if f == nil {
			res.Ignored = append(res.Ignored, in.Key)
			continue
		}
		value := strings.TrimSpace(in.Value)
		if value == "" {
			// Пустой ответ не занимает поле: учитывается следующий непустой.
			continue
		}
		if _, dup := answered[f.ID]; dup {
			res.Ignored = append(res.Ignored, in.Key)
			continue
		}
		answered[f.ID] = value
	}

	for _, f := range ordered {
		value, ok := answered[f.ID]
		if !ok || value == "" {
			if f.IsRequired {
				res.Missing = append(res.Missing, f.FieldName)
			}
			continue
		}

		typed, err := formfield.Interpret(f.FieldType, f.OptionsList(), value)
		if err != nil {
			if opts.StrictTypes {
				if res.TypeErrors == nil {
					res.TypeErrors = make(map[string]string)
				}
				res.TypeErrors[f.FieldName] = err.Error()
				continue
			}
			res.Warnings = append(res.Warnings, formfield.Warning{
				Field:   f.FieldName,
				Code:    formfield.WarnTypeMismatch,
				Message: err.Error(),
			})
		}

		res.Accepted = append(res.Accepted, Accepted{Field: f, Value: value, Typed: typed})
	}

	return res
}

// index — поиск поля по ключу ответа.
type index struct {
	byID       map[int64]*model.FieldDefinition
	byName     map[string]*model.FieldDefinition
	byQuestion map[string]*model.FieldDefinition
}

func newIndex(fields []*model.FieldDefinition) *index {
	idx := &index{
		byID:       make(map[int64]*model.FieldDefinition, len(fields)),
		byName:     make(map[string]*model.FieldDefinition, len(fields)),
		byQuestion: make(map[string]*model.FieldDefinition, len(fields)),
	}
	for _, f := range fields {
		idx.byID[f.ID] = f
		idx.byName[f.FieldName] = f
		// При одинаковом тексте вопроса побеждает первое поле в порядке набора.
		if _, exists := idx.byQuestion[f.QuestionText]; !exists {
			idx.byQuestion[f.QuestionText] = f
		}
	}
	return idx
}

func (x *index) resolve(key string) *model.FieldDefinition {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	// ID имеет приоритет: вопрос с текстом "7" не перекрывает поле с ID 7.
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if f, ok := x.byID[id]; ok {
			return f
		}
	}
	if f, ok := x.byName[key]; ok {
		return f
	}
	return x.byQuestion[key]
}
