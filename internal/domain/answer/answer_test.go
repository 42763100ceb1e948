package answer

import (
	"errors"
	"testing"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/model"
)

func field(id int64, order int, name, question string, typ formfield.Type, required bool, options string) *model.FieldDefinition {
	return &model.FieldDefinition{
		ID:    id,
		JobID: 42,
		Spec: formfield.Spec{
			QuestionText: question,
			FieldType:    typ,
			FieldName:    name,
			IsRequired:   required,
			Options:      options,
			DisplayOrder: order,
		},
	}
}

func TestValidate_RequiredAndOptional(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(1, 0, "q1", "Question one", formfield.TypeText, true, ""),
		field(2, 1, "q2", "Question two", formfield.TypeText, false, ""),
	}

	t.Run("ответ только на обязательное поле", func(t *testing.T) {
		res := Validate(fields, []Input{{Key: "q1", Value: "x"}}, Options{})
		if err := res.Err(); err != nil {
			t.Fatalf("Err() = %v", err)
		}
		if len(res.Accepted) != 1 || res.Accepted[0].Field.FieldName != "q1" || res.Accepted[0].Value != "x" {
			t.Errorf("Accepted = %+v, ожидался один ответ q1=x", res.Accepted)
		}
	})

	t.Run("нет ответа на обязательное поле", func(t *testing.T) {
		res := Validate(fields, []Input{{Key: "q2", Value: "y"}}, Options{})
		err := res.Err()
		if !errors.Is(err, ErrMissingRequiredField) {
			t.Fatalf("Err() = %v, ожидалась ErrMissingRequiredField", err)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || len(verr.Missing) != 1 || verr.Missing[0] != "q1" {
			t.Errorf("Missing = %v, ожидалось [q1]", verr)
		}
	})

	t.Run("пустой ответ на обязательное поле", func(t *testing.T) {
		res := Validate(fields, []Input{{Key: "q1", Value: "   "}}, Options{})
		if !errors.Is(res.Err(), ErrMissingRequiredField) {
			t.Fatalf("Err() = %v, пробелы не считаются ответом", res.Err())
		}
	})

	t.Run("пустой ответ на необязательное поле не сохраняется", func(t *testing.T) {
		res := Validate(fields, []Input{{Key: "q1", Value: "x"}, {Key: "q2", Value: ""}}, Options{})
		if len(res.Accepted) != 1 {
			t.Errorf("Accepted = %d, ожидался 1", len(res.Accepted))
		}
	})
}

func TestValidate_KeyResolution(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(10, 0, "shift", "Shift preference", formfield.TypeSelect, true, "Day, Night"),
		field(11, 1, "license", "License number", formfield.TypeText, false, ""),
		field(12, 2, "years", "Years of experience", formfield.TypeNumber, false, ""),
	}

	inputs := []Input{
		{Key: "10", Value: "Night"},
		{Key: "license", Value: "RN-1"},
		{Key: "Years of experience", Value: "4"},
		{Key: "unknown_field", Value: "ignored"},
		{Key: "shift", Value: "Day"},
	}

	res := Validate(fields, inputs, Options{})
	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := map[string]string{"shift": "Night", "license": "RN-1", "years": "4"}
	if len(res.Accepted) != len(want) {
		t.Fatalf("Accepted = %d, ожидалось %d", len(res.Accepted), len(want))
	}
	for _, a := range res.Accepted {
		if want[a.Field.FieldName] != a.Value {
			t.Errorf("%s = %q, хотели %q", a.Field.FieldName, a.Value, want[a.Field.FieldName])
		}
	}
	if len(res.Ignored) != 2 {
		t.Errorf("Ignored = %v, ожидались неизвестный ключ и повтор", res.Ignored)
	}
}

func TestValidate_BlankInputDoesNotClaimField(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(1, 0, "q1", "Question one", formfield.TypeText, true, ""),
	}

	tests := []struct {
		name        string
		inputs      []Input
		wantValue   string
		wantIgnored int
	}{
		{
			name:      "пустой ответ по имени, затем ответ по ID",
			inputs:    []Input{{Key: "q1", Value: "  "}, {Key: "1", Value: "x"}},
			wantValue: "x",
		},
		{
			name:      "пустой ответ по ID, затем ответ по тексту вопроса",
			inputs:    []Input{{Key: "1", Value: ""}, {Key: "Question one", Value: "y"}},
			wantValue: "y",
		},
		{
			name:        "повтор после непустого ответа отбрасывается",
			inputs:      []Input{{Key: "q1", Value: ""}, {Key: "q1", Value: "a"}, {Key: "1", Value: "b"}},
			wantValue:   "a",
			wantIgnored: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(fields, tt.inputs, Options{})
			if err := res.Err(); err != nil {
				t.Fatalf("Err() = %v, ожидался успех", err)
			}
			if len(res.Accepted) != 1 || res.Accepted[0].Value != tt.wantValue {
				t.Errorf("Accepted = %+v, хотели q1=%q", res.Accepted, tt.wantValue)
			}
			if len(res.Ignored) != tt.wantIgnored {
				t.Errorf("Ignored = %v, ожидалось %d", res.Ignored, tt.wantIgnored)
			}
		})
	}
}

func TestValidate_NumericKeyPrefersID(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(7, 0, "shift", "Shift preference", formfield.TypeText, false, ""),
		field(8, 1, "floor", "7", formfield.TypeText, false, ""),
	}

	res := Validate(fields, []Input{{Key: "7", Value: "Night"}}, Options{})
	if len(res.Accepted) != 1 {
		t.Fatalf("Accepted = %d, ожидался 1", len(res.Accepted))
	}
	if got := res.Accepted[0].Field.FieldName; got != "shift" {
		t.Errorf("ключ 7 сопоставлен с %q, ожидалось поле с ID 7", got)
	}

	// Текст вопроса "7" доступен, если поля с таким ID нет.
	res = Validate(fields[1:], []Input{{Key: "7", Value: "3"}}, Options{})
	if len(res.Accepted) != 1 || res.Accepted[0].Field.FieldName != "floor" {
		t.Errorf("Accepted = %+v, ожидалось поле floor", res.Accepted)
	}
}

func TestValidate_OrderFollowsFieldSet(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(3, 2, "c", "C", formfield.TypeText, false, ""),
		field(2, 0, "b", "B", formfield.TypeText, false, ""),
		field(1, 0, "a", "A", formfield.TypeText, false, ""),
	}
	res := Validate(fields, []Input{{Key: "c", Value: "3"}, {Key: "b", Value: "2"}, {Key: "a", Value: "1"}}, Options{})

	got := make([]string, 0, len(res.Accepted))
	for _, a := range res.Accepted {
		got = append(got, a.Field.FieldName)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("порядок = %v, ожидался [a b c]", got)
	}
}

func TestValidate_TypeChecks(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(1, 0, "years", "Years", formfield.TypeNumber, true, ""),
		field(2, 1, "contact", "Email", formfield.TypeEmail, false, ""),
	}
	inputs := []Input{{Key: "years", Value: "много"}, {Key: "contact", Value: "not-an-email"}}

	t.Run("по умолчанию — предупреждения", func(t *testing.T) {
		res := Validate(fields, inputs, Options{})
		if err := res.Err(); err != nil {
			t.Fatalf("Err() = %v, в мягком режиме ошибки быть не должно", err)
		}
		if len(res.Warnings) != 2 {
			t.Errorf("Warnings = %+v, ожидалось 2", res.Warnings)
		}
		if len(res.Accepted) != 2 {
			t.Errorf("Accepted = %d, ответы должны сохраниться", len(res.Accepted))
		}
	})

	t.Run("строгий режим — ошибки", func(t *testing.T) {
		res := Validate(fields, inputs, Options{StrictTypes: true})
		err := res.Err()
		if !errors.Is(err, formfield.ErrTypeMismatch) {
			t.Fatalf("Err() = %v, ожидалась ошибка типа", err)
		}
		if errors.Is(err, ErrMissingRequiredField) {
			t.Error("ошибка типа не должна считаться пропуском обязательного поля")
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			if _, ok := verr.Fields["years"]; !ok {
				t.Errorf("Fields = %v, ожидался ключ years", verr.Fields)
			}
		}
	})
}

// TestValidate_NurseScenario — шаблон «Nurse Template» применён к вакансии #42,
// кандидат отвечает «Night» на «Shift preference».
func TestValidate_NurseScenario(t *testing.T) {
	fields := []*model.FieldDefinition{
		field(7, 0, "shift_preference", "Shift preference", formfield.TypeSelect, true, "Day,Night"),
	}

	res := Validate(fields, []Input{{Key: "Shift preference", Value: "Night"}}, Options{})
	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].Value != "Night" || res.Accepted[0].Field.JobID != 42 {
		t.Errorf("Accepted = %+v, ожидался один ответ Night для вакансии 42", res.Accepted)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %+v, ответ из вариантов не должен давать предупреждений", res.Warnings)
	}
}
