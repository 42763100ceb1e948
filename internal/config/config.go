// Пакет config — загрузка и валидация конфигурации Recruit API
// из переменных окружения (и опционального .env файла).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Recruit API.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальный размер пула соединений
	DBMaxConns int
	// Время жизни соединения в пуле
	DBMaxConnLifetime time.Duration

	// --- Keycloak / JWT ---

	// URL Keycloak (например, https://keycloak.example.com)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration
	// Путь к CA-сертификату для исходящих TLS-соединений (опционально)
	CACertPath string

	// --- Маппинг групп → ролей ---

	// Группы Keycloak, дающие роль admin
	RoleAdminGroups []string
	// Группы Keycloak, дающие роль superuser
	RoleSuperuserGroups []string

	// --- Формы ---

	// Строгая проверка типов ответов (иначе — только предупреждения)
	FormsStrictTypes bool
	// Максимальный размер кэша наборов полей (число вакансий)
	FieldSetCacheSize int
	// TTL записи кэша наборов полей
	FieldSetCacheTTL time.Duration
	// Максимальное количество заявок в одной выгрузке CSV
	ExportMaxRows int
	// Строгая воронка статусов заявки (иначе — любой переход)
	StatusStrict bool

	// --- Уведомления ---

	// Ёмкость очереди уведомлений
	NotifyQueueSize int
	// Количество воркеров доставки уведомлений
	NotifyWorkers int
	// URL внешнего webhook для уведомлений (опционально)
	NotifyWebhookURL string
	// Таймаут доставки одного уведомления
	NotifyTimeout time.Duration

	// --- topologymetrics ---

	// Группа сервиса в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Перед разбором подгружается файл из RA_ENV_FILE (по умолчанию .env),
// если он существует. Уже заданные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvDefault("RA_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// RA_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("RA_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("RA_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RA_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// RA_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RA_LOG_LEVEL: %w", err)
	}

	// RA_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RA_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("RA_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("RA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("RA_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("RA_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("RA_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("RA_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("RA_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("RA_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	cfg.DBMaxConns, err = getEnvInt("RA_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("RA_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("RA_DB_MAX_CONNS: значение должно быть >= 1, получено %d", cfg.DBMaxConns)
	}

	cfg.DBMaxConnLifetime, err = getEnvDuration("RA_DB_MAX_CONN_LIFETIME", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("RA_DB_MAX_CONN_LIFETIME: %w", err)
	}

	// --- Keycloak / JWT ---

	cfg.KeycloakURL, err = getEnvRequired("RA_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	cfg.KeycloakRealm = getEnvDefault("RA_KEYCLOAK_REALM", "recruitart")

	cfg.JWTIssuer = getEnvDefault("RA_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTJWKSURL = getEnvDefault("RA_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTLeeway, err = getEnvDuration("RA_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RA_JWT_LEEWAY: %w", err)
	}

	cfg.JWKSClientTimeout, err = getEnvDuration("RA_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RA_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("RA_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RA_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.CACertPath = getEnvDefault("RA_CA_CERT_PATH", "")

	// --- Маппинг групп → ролей ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("RA_ROLE_ADMIN_GROUPS", "recruit-admins"))
	cfg.RoleSuperuserGroups = parseCSV(getEnvDefault("RA_ROLE_SUPERUSER_GROUPS", "recruit-superusers"))

	// --- Формы ---

	cfg.FormsStrictTypes, err = getEnvBool("RA_FORMS_STRICT_TYPES", false)
	if err != nil {
		return nil, fmt.Errorf("RA_FORMS_STRICT_TYPES: %w", err)
	}

	cfg.FieldSetCacheSize, err = getEnvInt("RA_FIELDSET_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("RA_FIELDSET_CACHE_SIZE: %w", err)
	}
	if cfg.FieldSetCacheSize < 1 {
		return nil, fmt.Errorf("RA_FIELDSET_CACHE_SIZE: значение %d должно быть положительным", cfg.FieldSetCacheSize)
	}

	cfg.FieldSetCacheTTL, err = getEnvDuration("RA_FIELDSET_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RA_FIELDSET_CACHE_TTL: %w", err)
	}

	cfg.ExportMaxRows, err = getEnvInt("RA_EXPORT_MAX_ROWS", 10000)
	if err != nil {
		return nil, fmt.Errorf("RA_EXPORT_MAX_ROWS: %w", err)
	}
	if cfg.ExportMaxRows < 1 || cfg.ExportMaxRows > 100000 {
		return nil, fmt.Errorf("RA_EXPORT_MAX_ROWS: значение %d вне допустимого диапазона 1-100000", cfg.ExportMaxRows)
	}

	cfg.StatusStrict, err = getEnvBool("RA_STATUS_STRICT", false)
	if err != nil {
		return nil, fmt.Errorf("RA_STATUS_STRICT: %w", err)
	}

	// --- Уведомления ---

	cfg.NotifyQueueSize, err = getEnvInt("RA_NOTIFY_QUEUE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("RA_NOTIFY_QUEUE_SIZE: %w", err)
	}
	if cfg.NotifyQueueSize < 1 {
		return nil, fmt.Errorf("RA_NOTIFY_QUEUE_SIZE: значение %d должно быть положительным", cfg.NotifyQueueSize)
	}

	cfg.NotifyWorkers, err = getEnvInt("RA_NOTIFY_WORKERS", 2)
	if err != nil {
		return nil, fmt.Errorf("RA_NOTIFY_WORKERS: %w", err)
	}
	if cfg.NotifyWorkers < 1 || cfg.NotifyWorkers > 64 {
		return nil, fmt.Errorf("RA_NOTIFY_WORKERS: значение %d вне допустимого диапазона 1-64", cfg.NotifyWorkers)
	}

	cfg.NotifyWebhookURL = getEnvDefault("RA_NOTIFY_WEBHOOK_URL", "")
	if cfg.NotifyWebhookURL != "" {
		if u, parseErr := url.Parse(cfg.NotifyWebhookURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("RA_NOTIFY_WEBHOOK_URL: некорректный URL %q", cfg.NotifyWebhookURL)
		}
	}

	cfg.NotifyTimeout, err = getEnvDuration("RA_NOTIFY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RA_NOTIFY_TIMEOUT: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("RA_DEPHEALTH_GROUP", "recruitart")

	cfg.DephealthCheckInterval, err = getEnvDuration("RA_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RA_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("RA_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RA_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (схема pgx5://).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadEnvFile подгружает переменные из .env файла, если он существует.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("RA_ENV_FILE: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("RA_ENV_FILE: ошибка разбора %s: %w", path, err)
	}
	return nil
}

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
