// roles.go — локальные повышения ролей поверх ролей из Keycloak.
// Реализует middleware.RoleOverrideProvider.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/domain/rbac"
	"github.com/bigkaa/recruitart/internal/repository"
)

// RoleService — сервис role overrides.
type RoleService struct {
	repo   repository.RoleOverrideRepository
	logger *slog.Logger
}

// NewRoleService создаёт сервис role overrides.
func NewRoleService(repo repository.RoleOverrideRepository, logger *slog.Logger) *RoleService {
	return &RoleService{
		repo:   repo,
		logger: logger.With(slog.String("component", "role_service")),
	}
}

// GetRoleOverride возвращает дополнительную роль пользователя.
// Если override не найден — nil, nil.
func (s *RoleService) GetRoleOverride(ctx context.Context, subject string) (*string, error) {
	ro, err := s.repo.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	role := ro.AdditionalRole
	return &role, nil
}

// List возвращает role overrides (только superuser).
func (s *RoleService) List(ctx context.Context, actor rbac.Actor, limit, offset int) ([]*model.RoleOverride, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение role overrides: %w", err)
	}
	return items, nil
}

// Set назначает пользователю дополнительную роль (admin или superuser).
func (s *RoleService) Set(ctx context.Context, actor rbac.Actor, subject, role string) (*model.RoleOverride, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, &FieldError{Fields: map[string]string{"subject": "обязательное поле"}}
	}
	if role != rbac.RoleAdmin && role != rbac.RoleSuperuser {
		return nil, &FieldError{Fields: map[string]string{"role": "допустимые значения — admin, superuser"}}
	}

	ro := &model.RoleOverride{Subject: subject, AdditionalRole: role, CreatedBy: actor.ID}
	if err := s.repo.Upsert(ctx, ro); err != nil {
		return nil, fmt.Errorf("сохранение role override: %w", err)
	}

	s.logger.Info("Role override назначен",
		slog.String("subject", subject),
		slog.String("role", role),
		slog.String("created_by", actor.ID),
	)
	return ro, nil
}

// Remove снимает дополнительную роль.
func (s *RoleService) Remove(ctx context.Context, actor rbac.Actor, subject string) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, subject); err != nil {
		return mapRepoErr(err, fmt.Errorf("%w: role override не найден", ErrNotFound), "удаление role override")
	}
	s.logger.Info("Role override удалён", slog.String("subject", subject), slog.String("deleted_by", actor.ID))
	return nil
}

func requireSuperuser(actor rbac.Actor) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !actor.IsSuperuser() {
		return fmt.Errorf("%w: операция доступна только superuser", ErrPermissionDenied)
	}
	return nil
}
