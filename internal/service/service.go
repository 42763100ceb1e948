// Пакет service — бизнес-логика Recruit API.
// service.go — общие зависимости сервисов: транзакции и проверка прав.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bigkaa/recruitart/internal/domain/formfield"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/repository"
)

// Transactor выполняет fn с репозиториями внутри одной транзакции.
// Реализуется repository.TxRunner.
type Transactor interface {
	InTx(ctx context.Context, fn func(s *repository.Store) error) error
}

// requireStaff проверяет, что субъект — администратор.
func requireStaff(actor rbac.Actor) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !actor.IsStaff() {
		return fmt.Errorf("%w: операция доступна только администраторам", ErrPermissionDenied)
	}
	return nil
}

// FieldError — ошибка валидации с привязкой к атрибутам запроса.
// Оборачивает ErrValidation.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap позволяет errors.Is(err, ErrValidation).
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// validateSpec проверяет определение поля и переводит ошибку в FieldError.
func validateSpec(spec formfield.Spec) ([]formfield.Warning, error) {
	warnings, err := spec.Validate()
	if err != nil {
		var verr *formfield.ValidationError
		if errors.As(err, &verr) {
			return nil, &FieldError{Fields: verr.Fields}
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err) //nolint:errorlint // намеренный двойной wrap
	}
	return warnings, nil
}

// mapRepoErr переводит ошибки репозитория в ошибки сервиса.
// notFound — доменная ошибка для repository.ErrNotFound.
func mapRepoErr(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err) //nolint:errorlint // намеренный двойной wrap
	case errors.Is(err, repository.ErrReference):
		return fmt.Errorf("%w: %w", ErrValidation, err) //nolint:errorlint // намеренный двойной wrap
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
