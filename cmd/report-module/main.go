// Точка входа Report Module — модуль приёма отчётов о нарушениях на экзаменах.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует клиенты объектного и документного хранилищ, создаёт
// сервисный слой и API handlers, запускает topologymetrics и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/examtrust/report-module/internal/api/handlers"
	"github.com/examtrust/report-module/internal/config"
	"github.com/examtrust/report-module/internal/database"
	"github.com/examtrust/report-module/internal/docstore"
	"github.com/examtrust/report-module/internal/objectstore"
	"github.com/examtrust/report-module/internal/repository"
	"github.com/examtrust/report-module/internal/server"
	"github.com/examtrust/report-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Report Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждение о дефолтном значении topologymetrics
	if os.Getenv("RM_DEPHEALTH_GROUP") == "" {
		logger.Warn("RM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент объектного хранилища (S3)
	store, err := objectstore.New(ctx, objectstore.Params{
		Endpoint: cfg.S3Endpoint,
		Region:   cfg.S3Region,
		Bucket:   cfg.S3Bucket,
		Folder:   cfg.EvidenceFolder,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента объектного хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент объектного хранилища создан",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("folder", cfg.EvidenceFolder),
	)

	// 6. Клиент документного хранилища (DynamoDB)
	docs, err := docstore.New(ctx, cfg.DynamoEndpoint, cfg.DynamoRegion, cfg.DynamoTable, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента документного хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент документного хранилища создан",
		slog.String("table", cfg.DynamoTable),
	)

	// 7. Repositories
	caseRepo := repository.NewCaseRepository(pool)
	identityRepo := repository.NewIdentityRepository(pool)
	txRunner := repository.NewTxRunner(pool, cfg.TxAcquireTimeout, cfg.TxTimeout)

	// 8. Services
	resolver := service.NewChainResolver(identityRepo, cfg.ResolverFallback, logger)
	submissionSvc := service.NewSubmissionService(
		caseRepo, identityRepo, docs, store, resolver, txRunner,
		logger,
	)
	verificationSvc := service.NewVerificationService(caseRepo, store, logger)
	dashboardSvc := service.NewDashboardService(caseRepo, cfg.RecentReportsLimit, logger)

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL + хранилища)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"report-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.S3Endpoint,
		cfg.DynamoEndpoint,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 10. Readiness checkers: PostgreSQL напрямую через пул,
	// хранилища — по результатам dephealth-проверок
	pgChecker := database.NewReadinessChecker(pool)
	var storeChecker, docChecker handlers.ReadinessChecker
	if dephealthErr == nil {
		storeChecker = dephealthSvc.Checker("object-store")
		docChecker = dephealthSvc.Checker("doc-store")
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, storeChecker, docChecker)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		submissionSvc,
		verificationSvc,
		dashboardSvc,
		cfg.MaxFileSize,
		logger,
	)

	// 12. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Report Module остановлен")
}
