// Точка входа Recruit API — сервис вакансий и динамических анкет соискателей.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт сервисный слой и диспетчер уведомлений, запускает topologymetrics
// и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/recruitart/internal/api/handlers"
	"github.com/bigkaa/recruitart/internal/api/middleware"
	"github.com/bigkaa/recruitart/internal/api/openapi"
	"github.com/bigkaa/recruitart/internal/config"
	"github.com/bigkaa/recruitart/internal/database"
	"github.com/bigkaa/recruitart/internal/domain/appstatus"
	"github.com/bigkaa/recruitart/internal/notify"
	"github.com/bigkaa/recruitart/internal/repository"
	"github.com/bigkaa/recruitart/internal/server"
	"github.com/bigkaa/recruitart/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Recruit API завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Recruit API запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("RA_DEPHEALTH_GROUP") == "" {
		logger.Warn("RA_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return err
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Репозитории и транзакции
	store := repository.NewStore(pool)
	txRunner := repository.NewTxRunner(pool)

	// 6. Уведомления: каталог сообщений, webhook, диспетчер
	catalog, err := notify.LoadCatalog()
	if err != nil {
		return err
	}

	var sink service.NotificationSink
	if cfg.NotifyWebhookURL != "" {
		webhook, whErr := notify.NewWebhook(cfg.NotifyWebhookURL, cfg.CACertPath, cfg.NotifyTimeout, logger)
		if whErr != nil {
			return whErr
		}
		sink = webhook
		logger.Info("Webhook уведомлений настроен", slog.String("url", webhook.URL()))
	} else {
		logger.Info("RA_NOTIFY_WEBHOOK_URL не задан, уведомления только сохраняются в БД")
	}

	dispatcher := service.NewNotificationDispatcher(
		store.Notifications, catalog, sink,
		cfg.NotifyQueueSize, cfg.NotifyWorkers, cfg.NotifyTimeout,
		logger,
	)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// 7. Сервисы
	fieldCache := service.NewFieldSetCache(cfg.FieldSetCacheSize, cfg.FieldSetCacheTTL)
	requirementsSvc := service.NewRequirementService(store, txRunner, fieldCache, logger)
	jobsSvc := service.NewJobService(store, requirementsSvc, logger)
	templatesSvc := service.NewTemplateService(store, txRunner, requirementsSvc, logger)
	applicationsSvc := service.NewApplicationService(store, txRunner, dispatcher, service.ApplicationOptions{
		StrictTypes:   cfg.FormsStrictTypes,
		ExportMaxRows: cfg.ExportMaxRows,
		Policy:        appstatus.Policy{Strict: cfg.StatusStrict},
	}, logger)
	rolesSvc := service.NewRoleService(store.RoleOverrides, logger)

	// 8. topologymetrics — мониторинг зависимостей (PostgreSQL, Keycloak, webhook)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"recruit-api",
		cfg.DephealthGroup,
		service.DephealthTargets{
			DB:          pgDB,
			PostgresURL: cfg.DatabaseURL(),
			JWKSURL:     cfg.JWTJWKSURL,
			WebhookURL:  cfg.NotifyWebhookURL,
		},
		cfg.DephealthCheckInterval,
		logger,
	)
	var deps handlers.DependencyHealth
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		defer dephealthSvc.Stop()
		deps = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 9. JWT middleware. Role overrides читаются через RoleService.
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.CACertPath,
		cfg.JWTIssuer,
		rolesSvc,
		cfg.RoleAdminGroups,
		cfg.RoleSuperuserGroups,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		return err
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. Readiness checkers (PostgreSQL + Keycloak)
	pgChecker := database.NewReadinessChecker(pool)
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		return err
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, kcChecker, deps)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		jobsSvc,
		requirementsSvc,
		templatesSvc,
		applicationsSvc,
		rolesSvc,
		logger,
	)

	// 12. OpenAPI контракт
	doc, err := openapi.Load(ctx)
	if err != nil {
		return err
	}
	docHandler, err := openapi.Handler(doc)
	if err != nil {
		return err
	}

	// 13. Создание и запуск HTTP-сервера
	router := server.NewRouter(logger, apiHandler, docHandler, jwtAuth.Middleware())
	srv := server.New(cfg, logger, router)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	// 14. Мониторинг и диспетчер уведомлений останавливаются через defer.
	logger.Info("Останавливаем фоновые задачи...")
	return nil
}
