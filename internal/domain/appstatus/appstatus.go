// Пакет appstatus — статусы заявки кандидата и правила переходов.
//
// По умолчанию переходы не ограничены: любой допустимый статус может
// смениться любым другим, включая тот же самый. Строгая политика
// (Policy{Strict: true}) задаёт воронку pending → reviewing → shortlisted → hired
// с возможностью отказа на любом шаге и повторного рассмотрения отказа.
package appstatus

import (
	"fmt"
	"strings"
	"time"
)

// Status — статус рассмотрения заявки.
type Status string

const (
	// Pending — заявка подана, не рассматривалась
	Pending Status = "pending"
	// Reviewing — на рассмотрении
	Reviewing Status = "reviewing"
	// Shortlisted — в коротком списке
	Shortlisted Status = "shortlisted"
	// Rejected — отказ
	Rejected Status = "rejected"
	// Hired — кандидат принят
	Hired Status = "hired"
)

// Initial — статус новой заявки.
const Initial = Pending

// All возвращает все статусы в порядке воронки.
func All() []Status {
	return []Status{Pending, Reviewing, Shortlisted, Rejected, Hired}
}

// Valid проверяет, является ли s известным статусом.
func (s Status) Valid() bool {
	switch s {
	case Pending, Reviewing, Shortlisted, Rejected, Hired:
		return true
	}
	return false
}

// Parse разбирает строку статуса (без учёта регистра и пробелов).
func Parse(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("недопустимый статус заявки %q, допустимые: pending, reviewing, shortlisted, rejected, hired", raw)
	}
	return s, nil
}

// strictTransitions — матрица переходов строгой политики.
var strictTransitions = map[Status]map[Status]bool{
	Pending:     {Reviewing: true, Rejected: true},
	Reviewing:   {Shortlisted: true, Rejected: true},
	Shortlisted: {Hired: true, Rejected: true},
	Rejected:    {Reviewing: true},
	Hired:       {},
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	// Code — INVALID_STATUS или INVALID_TRANSITION
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return e.Message
}

// TransitionRecord — запись о смене статуса.
type TransitionRecord struct {
	From      Status
	To        Status
	Subject   string
	Timestamp time.Time
}

// Policy — политика переходов. Нулевое значение — без ограничений.
type Policy struct {
	Strict bool
}

// CanTransition проверяет допустимость перехода from → to.
func (p Policy) CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if !p.Strict {
		return true
	}
	return strictTransitions[from][to]
}

// Transition проверяет переход и возвращает запись о нём.
// subject — кто инициировал переход (sub из JWT).
func (p Policy) Transition(from, to Status, subject string) (TransitionRecord, error) {
	if !to.Valid() {
		return TransitionRecord{}, &TransitionError{
			Code:    "INVALID_STATUS",
			Message: fmt.Sprintf("недопустимый целевой статус: %q", to),
		}
	}
	if !p.CanTransition(from, to) {
		return TransitionRecord{}, &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("переход %s → %s недопустим", from, to),
		}
	}
	return TransitionRecord{
		From:      from,
		To:        to,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}, nil
}
