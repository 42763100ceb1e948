package formfield

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// ErrTypeMismatch — ответ не соответствует типу поля.
var ErrTypeMismatch = errors.New("ответ не соответствует типу поля")

// Kind — вид типизированного значения ответа.
type Kind int

// Виды значений.
const (
	KindString Kind = iota
	KindNumber
	KindDate
	KindBool
	KindSelection
)

// DateLayouts — принимаемые форматы дат, в порядке проверки.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
}

// Value — типизированная интерпретация строкового ответа.
// Хранится ответ всегда строкой; Value используется только для проверок
// и отчётов.
type Value struct {
	Kind Kind
	// Raw — исходная строка ответа
	Raw string
	// Number — значение для KindNumber
	Number float64
	// Date — значение для KindDate
	Date time.Time
	// Bool — значение для KindBool
	Bool bool
	// Selection — выбранные варианты для KindSelection
	Selection []string
}

// String возвращает исходное строковое представление.
func (v Value) String() string {
	return v.Raw
}

// Interpret приводит строковый ответ к типу поля.
// options — разобранные варианты (см. ParseOptions).
// Ошибка оборачивает ErrTypeMismatch.
func Interpret(t Type, options []string, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	v := Value{Kind: KindString, Raw: raw}

	switch t {
	case TypeNumber:
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, " ", ""), 64)
		if err != nil {
			return v, fmt.Errorf("%w: %q не является числом", ErrTypeMismatch, raw)
		}
		v.Kind = KindNumber
		v.Number = n

	case TypeDate:
		d, ok := parseDate(raw)
		if !ok {
			return v, fmt.Errorf("%w: %q не является датой (ожидается YYYY-MM-DD)", ErrTypeMismatch, raw)
		}
		v.Kind = KindDate
		v.Date = d

	case TypeEmail:
		addr, err := mail.ParseAddress(raw)
		if err != nil || addr.Address != raw {
			return v, fmt.Errorf("%w: %q не является адресом email", ErrTypeMismatch, raw)
		}

	case TypeSelect:
		v.Kind = KindSelection
		v.Selection = []string{raw}
		if len(options) > 0 && !contains(options, raw) {
			return v, fmt.Errorf("%w: %q нет среди вариантов", ErrTypeMismatch, raw)
		}

	case TypeCheckbox:
		// Без вариантов — флажок да/нет, с вариантами — множественный выбор.
		if len(options) == 0 {
			b, ok := parseBool(raw)
			if !ok {
				return v, fmt.Errorf("%w: %q не является значением флажка", ErrTypeMismatch, raw)
			}
			v.Kind = KindBool
			v.Bool = b
			return v, nil
		}
		v.Kind = KindSelection
		v.Selection = ParseOptions(raw)
		for _, s := range v.Selection {
			if !contains(options, s) {
				return v, fmt.Errorf("%w: %q нет среди вариантов", ErrTypeMismatch, s)
			}
		}
	}

	return v, nil
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "yes", "on", "1", "y":
		return true, true
	case "false", "no", "off", "0", "n":
		return false, true
	}
	return false, false
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
