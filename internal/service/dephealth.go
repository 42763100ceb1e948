// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Recruit API мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical)
//   - Keycloak — HTTP checker к JWKS endpoint (critical)
//   - Webhook уведомлений — HTTP checker (не critical, только если задан)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthTargets — адреса отслеживаемых зависимостей.
type DephealthTargets struct {
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PostgresURL — URL PostgreSQL (для лейблов, не для подключения)
	PostgresURL string
	// JWKSURL — JWKS endpoint Keycloak
	JWKSURL string
	// WebhookURL — webhook уведомлений; пустая строка — не отслеживается
	WebhookURL string
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(
	serviceID, group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID, group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID, group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	keycloakOpts, err := httpDependencyOptions(targets.JWKSURL, checkInterval, true)
	if err != nil {
		return nil, fmt.Errorf("keycloak: %w", err)
	}

	opts := make([]dephealth.Option, 0, 4+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(targets.DB)),
			dephealth.FromURL(targets.PostgresURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
		dephealth.HTTP("keycloak", keycloakOpts...),
	)

	if targets.WebhookURL != "" {
		webhookOpts, err := httpDependencyOptions(targets.WebhookURL, checkInterval, false)
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		opts = append(opts, dephealth.HTTP("notify-webhook", webhookOpts...))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// httpDependencyOptions строит опции HTTP-зависимости из полного URL:
// схема и хост — адрес зависимости, путь — health path.
func httpDependencyOptions(rawURL string, checkInterval time.Duration, critical bool) ([]dephealth.DependencyOption, error) {
	base, path, err := splitHealthURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(base),
		dephealth.WithHTTPHealthPath(path),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(critical),
	}
	if u, _ := url.Parse(base); u.Scheme == "https" {
		opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
	}
	return opts, nil
}

// splitHealthURL разделяет URL на базовый адрес и путь проверки.
// Пустой путь заменяется на "/".
func splitHealthURL(rawURL string) (base, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("некорректный URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("некорректный URL %q: схема должна быть http или https", rawURL)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("некорректный URL %q: не указан хост", rawURL)
	}

	path = u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host, path, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
