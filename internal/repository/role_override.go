package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// RoleOverrideRepository — CRUD для таблицы role_overrides.
type RoleOverrideRepository interface {
	// Upsert создаёт или обновляет локальное повышение роли.
	Upsert(ctx context.Context, ro *model.RoleOverride) error
	// Get возвращает override по sub пользователя.
	Get(ctx context.Context, subject string) (*model.RoleOverride, error)
	// Delete удаляет override по sub пользователя.
	Delete(ctx context.Context, subject string) error
	// List возвращает overrides, новые первыми.
	List(ctx context.Context, limit, offset int) ([]*model.RoleOverride, error)
}

type roleOverrideRepo struct {
	db DBTX
}

// NewRoleOverrideRepository создаёт репозиторий role overrides.
func NewRoleOverrideRepository(db DBTX) RoleOverrideRepository {
	return &roleOverrideRepo{db: db}
}

const roColumns = `subject, additional_role, created_by, created_at, updated_at`

func scanRoleOverride(row pgx.Row) (*model.RoleOverride, error) {
	ro := &model.RoleOverride{}
	err := row.Scan(&ro.Subject, &ro.AdditionalRole, &ro.CreatedBy, &ro.CreatedAt, &ro.UpdatedAt)
	return ro, err
}

func (r *roleOverrideRepo) Upsert(ctx context.Context, ro *model.RoleOverride) error {
	query := `
		INSERT INTO role_overrides (subject, additional_role, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject) DO UPDATE SET
			additional_role = EXCLUDED.additional_role,
			created_by = EXCLUDED.created_by,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, ro.Subject, ro.AdditionalRole, ro.CreatedBy).
		Scan(&ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert role override: %w", err)
	}
	return nil
}

func (r *roleOverrideRepo) Get(ctx context.Context, subject string) (*model.RoleOverride, error) {
	ro, err := scanRoleOverride(r.db.QueryRow(ctx,
		`SELECT `+roColumns+` FROM role_overrides WHERE subject = $1`, subject))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения role override: %w", err)
	}
	return ro, nil
}

func (r *roleOverrideRepo) Delete(ctx context.Context, subject string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_overrides WHERE subject = $1`, subject)
	if err != nil {
		return fmt.Errorf("ошибка удаления role override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roleOverrideRepo) List(ctx context.Context, limit, offset int) ([]*model.RoleOverride, error) {
	query := `
		SELECT ` + roColumns + `
		FROM role_overrides
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка role overrides: %w", err)
	}
	defer rows.Close()

	result := make([]*model.RoleOverride, 0)
	for rows.Next() {
		ro, err := scanRoleOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования role override: %w", err)
		}
		result = append(result, ro)
	}
	return result, rows.Err()
}
