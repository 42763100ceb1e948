// notifications.go — асинхронная доставка уведомлений кандидатам.
// Очередь с пулом воркеров: запись в notifications и, если задан,
// POST во внешний webhook. Сбой доставки логируется и считается в метриках,
// на результат бизнес-операции не влияет. Переполненная очередь отбрасывает событие.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/recruitart/internal/domain/appstatus"
	"github.com/bigkaa/recruitart/internal/domain/model"
	"github.com/bigkaa/recruitart/internal/notify"
	"github.com/bigkaa/recruitart/internal/repository"
)

// NotificationEvent — событие, о котором нужно уведомить кандидата.
type NotificationEvent struct {
	Type model.NotificationType
	// UserID — sub получателя
	UserID string
	// Lang — язык текста (en, ru); пусто — en
	Lang          string
	JobTitle      string
	ApplicationID int64
	OldStatus     appstatus.Status
	NewStatus     appstatus.Status
}

// Notifier принимает события для асинхронной доставки.
// Notify не блокирует; false — событие отброшено.
type Notifier interface {
	Notify(ev NotificationEvent) bool
}

// NotificationSink — внешний получатель уведомлений (webhook).
type NotificationSink interface {
	Send(ctx context.Context, n *model.Notification) error
}

// NotificationDispatcher — очередь уведомлений с пулом воркеров.
type NotificationDispatcher struct {
	repo    repository.NotificationRepository
	catalog *notify.Catalog
	sink    NotificationSink
	workers int
	timeout time.Duration
	logger  *slog.Logger

	queue chan NotificationEvent

	mu      sync.RWMutex
	stopped bool

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewNotificationDispatcher создаёт диспетчер.
// sink может быть nil — тогда уведомления только сохраняются в БД.
func NewNotificationDispatcher(
	repo repository.NotificationRepository,
	catalog *notify.Catalog,
	sink NotificationSink,
	queueSize, workers int,
	timeout time.Duration,
	logger *slog.Logger,
) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	return &NotificationDispatcher{
		repo:    repo,
		catalog: catalog,
		sink:    sink,
		workers: workers,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "notification_dispatcher")),
		queue:   make(chan NotificationEvent, queueSize),
	}
}

// Start запускает воркеры. ctx ограничивает время жизни доставок.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.baseCtx = context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for ev := range d.queue {
				d.deliver(ev)
			}
		}()
	}
	d.logger.Info("Диспетчер уведомлений запущен",
		slog.Int("workers", d.workers),
		slog.Int("queue_size", cap(d.queue)),
		slog.Bool("webhook", d.sink != nil),
	)
}

// Stop закрывает очередь, дожидается доставки оставшихся событий.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Диспетчер уведомлений остановлен")
}

// Notify ставит событие в очередь без блокировки.
func (d *NotificationDispatcher) Notify(ev NotificationEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		notificationsDroppedTotal.Inc()
		d.logger.Warn("Уведомление отброшено: диспетчер остановлен",
			slog.String("user_id", ev.UserID),
			slog.Int64("application_id", ev.ApplicationID),
		)
		return false
	}

	select {
	case d.queue <- ev:
		return true
	default:
		notificationsDroppedTotal.Inc()
		d.logger.Warn("Уведомление отброшено: очередь переполнена",
			slog.String("user_id", ev.UserID),
			slog.Int64("application_id", ev.ApplicationID),
			slog.String("type", string(ev.Type)),
		)
		return false
	}
}

// Build формирует уведомление по событию.
func (d *NotificationDispatcher) Build(ev NotificationEvent) *model.Notification {
	lang := ev.Lang
	if lang == "" {
		lang = notify.DefaultLang
	}
	appID := ev.ApplicationID

	n := &model.Notification{
		DeliveryID:        uuid.New(),
		UserID:            ev.UserID,
		Type:              ev.Type,
		Priority:          model.PriorityNormal,
		RelatedObjectType: "JobApplication",
		RelatedObjectID:   &appID,
		ActionURL:         fmt.Sprintf("/applications/%d", ev.ApplicationID),
		CreatedAt:         time.Now().UTC(),
	}

	switch ev.Type {
	case model.NotificationApplicationSubmitted:
		n.Title = d.catalog.Translate(lang, "submitted.title")
		n.Message = d.catalog.Translatef(lang, "submitted.message", ev.JobTitle)
	case model.NotificationApplicationStatus:
		n.Title = d.catalog.Translate(lang, "status.title")
		key := "status." + string(ev.NewStatus)
		var text string
		if d.catalog.Has(lang, key) {
			text = d.catalog.Translate(lang, key)
		} else {
			text = d.catalog.Translatef(lang, "status.changed", ev.OldStatus, ev.NewStatus)
		}
		n.Message = d.catalog.Translatef(lang, "status.message", ev.JobTitle, text)
		if ev.NewStatus == appstatus.Shortlisted || ev.NewStatus == appstatus.Hired {
			n.Priority = model.PriorityHigh
		}
	default:
		n.Type = model.NotificationSystem
	}
	return n
}

// deliver сохраняет уведомление и отправляет его во внешний webhook.
func (d *NotificationDispatcher) deliver(ev NotificationEvent) {
	n := d.Build(ev)

	ctx, cancel := context.WithTimeout(d.baseCtx, d.timeout)
	defer cancel()

	ok := true
	if err := d.repo.Create(ctx, n); err != nil {
		ok = false
		notificationsFailedTotal.WithLabelValues("store").Inc()
		d.logger.Warn("Не удалось сохранить уведомление",
			slog.String("delivery_id", n.DeliveryID.String()),
			slog.String("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
	}

	if d.sink != nil {
		if err := d.sink.Send(ctx, n); err != nil {
			ok = false
			notificationsFailedTotal.WithLabelValues("webhook").Inc()
			d.logger.Warn("Не удалось доставить уведомление в webhook",
				slog.String("delivery_id", n.DeliveryID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if ok {
		notificationsSentTotal.Inc()
		d.logger.Debug("Уведомление доставлено",
			slog.String("delivery_id", n.DeliveryID.String()),
			slog.String("type", string(n.Type)),
		)
	}
}
