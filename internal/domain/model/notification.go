package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType — тип уведомления.
type NotificationType string

// Типы уведомлений, создаваемых сервисом.
const (
	NotificationApplicationSubmitted NotificationType = "application_submitted"
	NotificationApplicationStatus    NotificationType = "application_status"
	NotificationSystem               NotificationType = "system"
)

// NotificationPriority — приоритет уведомления.
type NotificationPriority string

// Приоритеты.
const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification — уведомление пользователя. Хранится в notifications.
type Notification struct {
	// ID — идентификатор записи
	ID int64
	// DeliveryID — идентификатор доставки (идемпотентность webhook)
	DeliveryID uuid.UUID
	// UserID — sub получателя
	UserID string
	// Title — заголовок
	Title string
	// Message — текст
	Message string
	// Type — тип уведомления
	Type NotificationType
	// Priority — приоритет
	Priority NotificationPriority
	// RelatedObjectType — тип связанного объекта (JobApplication)
	RelatedObjectType string
	// RelatedObjectID — идентификатор связанного объекта
	RelatedObjectID *int64
	// ActionURL — ссылка для перехода
	ActionURL string
	// IsRead — прочитано
	IsRead bool
	// CreatedAt — время создания
	CreatedAt time.Time
}
