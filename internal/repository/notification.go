package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// NotificationRepository — уведомления пользователей.
type NotificationRepository interface {
	// Create сохраняет уведомление. Повтор delivery_id — ErrConflict.
	Create(ctx context.Context, n *model.Notification) error
}

type notificationRepo struct {
	db DBTX
}

// NewNotificationRepository создаёт репозиторий уведомлений.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (delivery_id, user_id, title, message, notification_type, priority,
			related_object_type, related_object_id, action_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, is_read, created_at`

	err := r.db.QueryRow(ctx, query,
		n.DeliveryID, n.UserID, n.Title, n.Message, n.Type, n.Priority,
		n.RelatedObjectType, n.RelatedObjectID, n.ActionURL,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: уведомление %s уже сохранено", ErrConflict, n.DeliveryID)
		}
		return fmt.Errorf("ошибка создания уведомления: %w", err)
	}
	return nil
}
