// metrics.go — Prometheus-метрики бизнес-операций.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applicationsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_applications_submitted_total",
		Help: "Количество сохранённых заявок.",
	})
	applicationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ra_applications_rejected_total",
		Help: "Количество отклонённых при подаче заявок по причине.",
	}, []string{"reason"})
	applicationStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ra_application_status_changes_total",
		Help: "Количество смен статуса заявок по целевому статусу.",
	}, []string{"status"})
	templatesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_templates_applied_total",
		Help: "Количество применений шаблонов к вакансиям.",
	})
	templateFieldsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_template_fields_created_total",
		Help: "Количество полей вакансий, созданных применением шаблонов.",
	})
	exportRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_export_rows_total",
		Help: "Количество строк, выгруженных в CSV.",
	})
	fieldSetCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_fieldset_cache_hits_total",
		Help: "Общее количество попаданий в кэш наборов полей.",
	})
	fieldSetCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_fieldset_cache_misses_total",
		Help: "Общее количество промахов кэша наборов полей.",
	})
	notificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_notifications_sent_total",
		Help: "Количество доставленных уведомлений.",
	})
	notificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ra_notifications_failed_total",
		Help: "Количество уведомлений, которые не удалось доставить, по этапу.",
	}, []string{"stage"})
	notificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ra_notifications_dropped_total",
		Help: "Количество уведомлений, отброшенных из-за переполнения очереди.",
	})
)
