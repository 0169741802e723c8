// Пакет config — загрузка и валидация конфигурации Report Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Report Module.
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

	// --- Объектное хранилище (S3) ---

	// Endpoint S3-совместимого хранилища (пусто — AWS по региону)
	S3Endpoint string
	// Регион S3
	S3Region string
	// Bucket для доказательств
	S3Bucket string
	// Папка (префикс ключей) для доказательств
	EvidenceFolder string

	// --- Документное хранилище (DynamoDB) ---

	// Endpoint DynamoDB (пусто — AWS по региону)
	DynamoEndpoint string
	// Регион DynamoDB
	DynamoRegion string
	// Таблица документов доказательств
	DynamoTable string

	// --- Конвейер подачи ---

	// Максимальный размер файла доказательства в байтах
	MaxFileSize int64
	// Таймаут ожидания соединения из пула при открытии транзакции
	TxAcquireTimeout time.Duration
	// Общий таймаут транзакции
	TxTimeout time.Duration
	// Разрешить fallback разрешения наблюдателя на последнего зарегистрированного
	ResolverFallback bool
	// Число последних отчётов в сводке
	RecentReportsLimit int

	// --- Мониторинг ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в dephealth-метриках
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// RM_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("RM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("RM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// RM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RM_LOG_LEVEL: %w", err)
	}

	// RM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// RM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("RM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// RM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("RM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("RM_DB_PORT: %w", err)
	}

	// RM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("RM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// RM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("RM_DB_USER")
	if err != nil {
		return nil, err
	}

	// RM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("RM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// RM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("RM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("RM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Объектное хранилище ---

	// RM_S3_ENDPOINT — endpoint S3 (опционально; пусто — AWS по региону)
	cfg.S3Endpoint = strings.TrimRight(getEnvDefault("RM_S3_ENDPOINT", ""), "/")

	// RM_S3_REGION — регион S3 (по умолчанию us-east-1)
	cfg.S3Region = getEnvDefault("RM_S3_REGION", "us-east-1")

	// RM_S3_BUCKET — обязательный
	cfg.S3Bucket, err = getEnvRequired("RM_S3_BUCKET")
	if err != nil {
		return nil, err
	}

	// RM_EVIDENCE_FOLDER — префикс ключей доказательств (по умолчанию exam_evidence_vault)
	cfg.EvidenceFolder = getEnvDefault("RM_EVIDENCE_FOLDER", "exam_evidence_vault")

	// --- Документное хранилище ---

	// RM_DYNAMO_ENDPOINT — endpoint DynamoDB (опционально)
	cfg.DynamoEndpoint = strings.TrimRight(getEnvDefault("RM_DYNAMO_ENDPOINT", ""), "/")

	// RM_DYNAMO_REGION — регион DynamoDB (по умолчанию регион S3)
	cfg.DynamoRegion = getEnvDefault("RM_DYNAMO_REGION", cfg.S3Region)

	// RM_DYNAMO_TABLE — таблица документов (по умолчанию evidence)
	cfg.DynamoTable = getEnvDefault("RM_DYNAMO_TABLE", "evidence")

	// --- Конвейер подачи ---

	// RM_MAX_FILE_SIZE — лимит размера файла в байтах (по умолчанию 5 MiB)
	cfg.MaxFileSize, err = getEnvInt64("RM_MAX_FILE_SIZE", 5*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("RM_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize < 1 {
		return nil, fmt.Errorf("RM_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// RM_TX_ACQUIRE_TIMEOUT — ожидание соединения из пула (по умолчанию 5s)
	cfg.TxAcquireTimeout, err = getEnvDuration("RM_TX_ACQUIRE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_TX_ACQUIRE_TIMEOUT: %w", err)
	}

	// RM_TX_TIMEOUT — общий таймаут транзакции (по умолчанию 10s)
	cfg.TxTimeout, err = getEnvDuration("RM_TX_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_TX_TIMEOUT: %w", err)
	}

	// RM_RESOLVER_FALLBACK — fallback на последнего наблюдателя (по умолчанию true)
	cfg.ResolverFallback, err = getEnvBool("RM_RESOLVER_FALLBACK", true)
	if err != nil {
		return nil, fmt.Errorf("RM_RESOLVER_FALLBACK: %w", err)
	}

	// RM_RECENT_REPORTS_LIMIT — число последних отчётов в сводке (по умолчанию 5)
	cfg.RecentReportsLimit, err = getEnvInt("RM_RECENT_REPORTS_LIMIT", 5)
	if err != nil {
		return nil, fmt.Errorf("RM_RECENT_REPORTS_LIMIT: %w", err)
	}
	if cfg.RecentReportsLimit < 1 || cfg.RecentReportsLimit > 100 {
		return nil, fmt.Errorf("RM_RECENT_REPORTS_LIMIT: значение %d вне допустимого диапазона 1-100", cfg.RecentReportsLimit)
	}

	// --- Мониторинг ---

	// RM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("RM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// RM_DEPHEALTH_GROUP — группа dephealth-метрик (по умолчанию examtrust)
	cfg.DephealthGroup = getEnvDefault("RM_DEPHEALTH_GROUP", "examtrust")

	// --- Graceful shutdown ---

	// RM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("RM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_SHUTDOWN_TIMEOUT: %w", err)
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

// DatabaseURL возвращает URL подключения к PostgreSQL (для dephealth-лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
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

// getEnvInt64 возвращает 64-битное целое из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
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
