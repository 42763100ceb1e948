package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"RA_ENV_FILE":     filepath.Join(os.TempDir(), "recruitart-no-such.env"),
		"RA_DB_HOST":      "localhost",
		"RA_DB_NAME":      "recruitart",
		"RA_DB_USER":      "recruitart",
		"RA_DB_PASSWORD":  "secret",
		"RA_KEYCLOAK_URL": "https://keycloak.example.com/",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMaxConnLifetime != time.Hour {
		t.Errorf("пул = (%d, %v), ожидается (10, 1h)", cfg.DBMaxConns, cfg.DBMaxConnLifetime)
	}
	if cfg.KeycloakURL != "https://keycloak.example.com" {
		t.Errorf("KeycloakURL = %q, trailing slash должен быть убран", cfg.KeycloakURL)
	}
	if cfg.JWTIssuer != "https://keycloak.example.com/realms/recruitart" {
		t.Errorf("JWTIssuer = %q", cfg.JWTIssuer)
	}
	if cfg.JWTJWKSURL != "https://keycloak.example.com/realms/recruitart/protocol/openid-connect/certs" {
		t.Errorf("JWTJWKSURL = %q", cfg.JWTJWKSURL)
	}
	if cfg.FormsStrictTypes {
		t.Error("FormsStrictTypes по умолчанию должен быть false")
	}
	if cfg.StatusStrict {
		t.Error("StatusStrict по умолчанию должен быть false")
	}
	if cfg.FieldSetCacheTTL != 5*time.Minute {
		t.Errorf("FieldSetCacheTTL = %v, ожидается 5m", cfg.FieldSetCacheTTL)
	}
	if cfg.NotifyQueueSize != 256 || cfg.NotifyWorkers != 2 {
		t.Errorf("Notify = (%d, %d), ожидается (256, 2)", cfg.NotifyQueueSize, cfg.NotifyWorkers)
	}
	if cfg.ExportMaxRows != 10000 {
		t.Errorf("ExportMaxRows = %d, ожидается 10000", cfg.ExportMaxRows)
	}
	if len(cfg.RoleAdminGroups) != 1 || cfg.RoleAdminGroups[0] != "recruit-admins" {
		t.Errorf("RoleAdminGroups = %v", cfg.RoleAdminGroups)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{"RA_DB_HOST", "RA_DB_NAME", "RA_DB_USER", "RA_DB_PASSWORD", "RA_KEYCLOAK_URL"}

	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			envs := minimalEnvs()
			envs[key] = ""
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() без %s должен вернуть ошибку", key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "порт не число", key: "RA_PORT", val: "abc"},
		{name: "порт вне диапазона", key: "RA_PORT", val: "70000"},
		{name: "неизвестный уровень логов", key: "RA_LOG_LEVEL", val: "verbose"},
		{name: "неизвестный формат логов", key: "RA_LOG_FORMAT", val: "xml"},
		{name: "неизвестный sslmode", key: "RA_DB_SSL_MODE", val: "prefer"},
		{name: "пустой пул соединений", key: "RA_DB_MAX_CONNS", val: "0"},
		{name: "строгий режим не bool", key: "RA_FORMS_STRICT_TYPES", val: "maybe"},
		{name: "нулевой размер кэша", key: "RA_FIELDSET_CACHE_SIZE", val: "0"},
		{name: "слишком много воркеров", key: "RA_NOTIFY_WORKERS", val: "100"},
		{name: "webhook без схемы", key: "RA_NOTIFY_WEBHOOK_URL", val: "hooks.example.com"},
		{name: "некорректная длительность", key: "RA_NOTIFY_TIMEOUT", val: "5 seconds"},
		{name: "выгрузка без строк", key: "RA_EXPORT_MAX_ROWS", val: "0"},
		{name: "строгая воронка не bool", key: "RA_STATUS_STRICT", val: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.val
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q должен вернуть ошибку", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_StatusStrict(t *testing.T) {
	envs := minimalEnvs()
	envs["RA_STATUS_STRICT"] = "true"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if !cfg.StatusStrict {
		t.Error("StatusStrict = false, ожидается true из RA_STATUS_STRICT")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "RA_DB_NAME")
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("RA_DB_NAME=from_file\nRA_DB_HOST=ignored\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	envs["RA_ENV_FILE"] = envFile
	setEnvs(t, envs)

	// t.Setenv восстановит значение после теста, а godotenv не перезаписывает
	// только существующие переменные, поэтому RA_DB_NAME нужно удалить.
	t.Setenv("RA_DB_NAME", "")
	os.Unsetenv("RA_DB_NAME")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.DBName != "from_file" {
		t.Errorf("DBName = %q, ожидается from_file", cfg.DBName)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, переменная окружения должна иметь приоритет над .env", cfg.DBHost)
	}
}

func TestConfig_URLs(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBName: "recruit", DBUser: "u", DBPassword: "p@ss", DBSSLMode: "disable",
	}

	if got := cfg.DatabaseDSN(); got != "host=db port=5433 dbname=recruit user=u password=p@ss sslmode=disable" {
		t.Errorf("DatabaseDSN() = %q", got)
	}
	if got := cfg.DatabaseURL(); got != "postgres://u@db:5433/recruit" {
		t.Errorf("DatabaseURL() = %q", got)
	}
	if got := cfg.MigrateURL(); got != "pgx5://u:p%40ss@db:5433/recruit?sslmode=disable" {
		t.Errorf("MigrateURL() = %q", got)
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "пустая строка", in: "", want: nil},
		{name: "один элемент", in: "admins", want: []string{"admins"}},
		{name: "пробелы и пустые элементы", in: " a , ,b ", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCSV(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("parseCSV(%q) = %v, хотели %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseCSV(%q)[%d] = %q, хотели %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
