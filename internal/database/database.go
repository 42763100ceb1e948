// Пакет database — пул соединений PostgreSQL, встроенные миграции схемы
// анкет и заявок, проверка готовности с контролем версии схемы.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/recruitart/internal/config"
)

// applicationName — имя клиента в pg_stat_activity.
const applicationName = "recruit-api"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema — предыдущая миграция прервана, нужна ручная правка.
var ErrDirtySchema = errors.New("схема БД в состоянии dirty")

// Connect создаёт пул с параметрами из конфигурации и проверяет доступность.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns) //nolint:gosec // ограничено валидацией конфигурации
	poolCfg.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", cfg.DBMaxConns),
		slog.Duration("max_conn_lifetime", cfg.DBMaxConnLifetime),
	)
	return pool, nil
}

// Migrate доводит схему до последней встроенной версии.
// Схема в состоянии dirty не трогается: возвращается ErrDirtySchema.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	case dirty:
		return fmt.Errorf("%w: версия %d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Схема БД актуальна", slog.Uint64("version", uint64(before)))
			return nil
		}
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	after, _, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("from", uint64(before)),
		slog.Uint64("to", uint64(after)),
	)
	return nil
}

// SchemaVersion возвращает номер последней встроенной миграции.
func SchemaVersion() (uint, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("ошибка создания источника миграций: %w", err)
	}
	defer source.Close()

	v, err := source.First()
	if err != nil {
		return 0, fmt.Errorf("нет встроенных миграций: %w", err)
	}
	for {
		next, err := source.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("ошибка обхода миграций: %w", err)
		}
		v = next
	}
}

// ReadinessChecker — проверка готовности PostgreSQL для health endpoint.
// Кроме ping сверяет версию схемы с встроенными миграциями.
type ReadinessChecker struct {
	pool    *pgxpool.Pool
	want    uint
	timeout time.Duration
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	// Ошибка означает отсутствие встроенных миграций: версия не сверяется.
	want, _ := SchemaVersion()
	return &ReadinessChecker{pool: pool, want: want, timeout: 3 * time.Second}
}

// CheckReady возвращает "fail", если база недоступна или схема dirty,
// и "degraded", если схема отстаёт от встроенных миграций.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}

	var (
		version int64
		dirty   bool
	)
	err := c.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return "degraded", "схема БД не применена"
	}
	if dirty {
		return "fail", fmt.Sprintf("миграция %d не завершена", version)
	}
	if c.want > 0 && uint(version) < c.want { //nolint:gosec // версия миграции неотрицательна
		return "degraded", fmt.Sprintf("версия схемы %d, ожидается %d", version, c.want)
	}
	return "ok", fmt.Sprintf("схема версии %d", version)
}
