// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

// Базовые ошибки. Обработчики сопоставляют их с HTTP-статусами.
var (
	// ErrValidation — ошибка валидации входных данных (400).
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotFound — ресурс не найден (404).
	ErrNotFound = errors.New("ресурс не найден")
	// ErrUnauthenticated — требуется аутентификация (401).
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrPermissionDenied — недостаточно прав (403).
	ErrPermissionDenied = errors.New("недостаточно прав")
	// ErrConflict — конфликт (дублирующийся ресурс) (409).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
)

// Доменные ошибки, оборачивающие базовые.
var (
	// ErrDuplicateFieldName — поле с таким field_name уже есть у владельца.
	ErrDuplicateFieldName = fmt.Errorf("%w: поле с таким field_name уже существует", ErrConflict)
	// ErrDuplicateApplication — кандидат уже подал заявку на вакансию.
	ErrDuplicateApplication = fmt.Errorf("%w: заявка на эту вакансию уже подана", ErrConflict)
	// ErrTemplateNotFound — шаблон не найден.
	ErrTemplateNotFound = fmt.Errorf("%w: шаблон не найден", ErrNotFound)
	// ErrJobNotFound — вакансия не найдена.
	ErrJobNotFound = fmt.Errorf("%w: вакансия не найдена", ErrNotFound)
	// ErrFieldNotFound — поле анкеты не найдено.
	ErrFieldNotFound = fmt.Errorf("%w: поле не найдено", ErrNotFound)
	// ErrApplicationNotFound — заявка не найдена.
	ErrApplicationNotFound = fmt.Errorf("%w: заявка не найдена", ErrNotFound)
	// ErrTemplateInactive — шаблон выключен и не может быть применён.
	ErrTemplateInactive = fmt.Errorf("%w: шаблон неактивен", ErrValidation)
	// ErrJobClosed — вакансия не принимает заявки.
	ErrJobClosed = fmt.Errorf("%w: вакансия не принимает заявки", ErrValidation)
)
