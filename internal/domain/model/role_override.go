package model

import "time"

// RoleOverride — локальное повышение роли пользователя поверх роли из IdP.
// Хранится в role_overrides.
type RoleOverride struct {
	// Subject — sub пользователя в Keycloak
	Subject string
	// AdditionalRole — дополнительная роль (admin, superuser)
	AdditionalRole string
	// CreatedBy — sub того, кто назначил
	CreatedBy string
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
