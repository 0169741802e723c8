// submit.go — координатор подачи отчёта о нарушении.
//
// Порядок операций фиксирован: валидация и разрешение субъектов →
// дайджест и загрузка файла в объектное хранилище → короткая реляционная
// транзакция (инцидент + vault-запись атомарно) → best-effort запись
// документа в документное хранилище. Загрузка и хэширование выполняются
// ДО открытия транзакции, чтобы транзакция касалась только небольших
// структурированных строк.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/examtrust/report-module/internal/checksum"
	"github.com/examtrust/report-module/internal/docstore"
	"github.com/examtrust/report-module/internal/domain/model"
	"github.com/examtrust/report-module/internal/metrics"
	"github.com/examtrust/report-module/internal/objectstore"
	"github.com/examtrust/report-module/internal/repository"
)

// TxRunner — выполнение функции в транзакции с ограниченным ожиданием.
// Реализуется repository.TxRunner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// EvidenceFile — приложенный к отчёту файл доказательства.
type EvidenceFile struct {
	// Data — содержимое файла
	Data []byte
	// OriginalName — оригинальное имя файла
	OriginalName string
	// ContentType — MIME-тип из multipart-заголовка
	ContentType string
}

// SubmitParams — параметры подачи отчёта.
type SubmitParams struct {
	// StudentReg — регистрационный номер студента (обязательно)
	StudentReg string
	// ExamCode — код экзамена (обязательно)
	ExamCode string
	// InvigilatorRef — идентификатор наблюдателя: числовой ID или табельный код (обязательно)
	InvigilatorRef string
	// Description — описание инцидента (опционально)
	Description string
	// Evidence — файл доказательства (опционально)
	Evidence *EvidenceFile
}

// SubmitResult — результат подачи отчёта.
type SubmitResult struct {
	// Incident — созданный инцидент
	Incident *model.Incident
	// Vault — vault-запись доказательства (nil без файла)
	Vault *model.EvidenceVaultRecord
	// Document — документ в документном хранилище (nil без файла
	// или при неудачной вторичной записи)
	Document *model.EvidenceDocument
	// EvidenceSynced — false, если вторичная запись документа не прошла
	// (инцидент и vault-запись при этом сохранены)
	EvidenceSynced bool
}

// SubmissionService — координатор подачи отчётов.
type SubmissionService struct {
	cases      repository.CaseRepository
	identities repository.IdentityRepository
	docs       docstore.EvidenceRepository
	store      objectstore.Client
	resolver   InvigilatorResolver
	tx         TxRunner
	logger     *slog.Logger
}

// NewSubmissionService создаёт координатор подачи отчётов.
func NewSubmissionService(
	cases repository.CaseRepository,
	identities repository.IdentityRepository,
	docs docstore.EvidenceRepository,
	store objectstore.Client,
	resolver InvigilatorResolver,
	tx TxRunner,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		cases:      cases,
		identities: identities,
		docs:       docs,
		store:      store,
		resolver:   resolver,
		tx:         tx,
		logger:     logger.With(slog.String("component", "submission_service")),
	}
}

// Submit проводит отчёт через весь конвейер.
//
// Гарантии:
//   - ошибки валидации и разрешения не оставляют побочных эффектов;
//   - при неудачной загрузке файла не создаётся ни одной записи;
//   - инцидент и vault-запись создаются в одной транзакции (оба или ни одного);
//   - неудачная запись документа НЕ отменяет успех: реляционная фиксация —
//     граница долговечности, документ — восстановимая проекция.
func (s *SubmissionService) Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	// 1. Обязательные поля
	if params.StudentReg == "" || params.ExamCode == "" || params.InvigilatorRef == "" {
		metrics.ReportsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: обязательны studentReg, examCode и invigilatorId", ErrValidation)
	}

	// 2. Разрешение наблюдателя
	invigilator, err := s.resolver.Resolve(ctx, params.InvigilatorRef)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// 3. Ссылочная целостность студента
	if _, err := s.identities.StudentByRegNo(ctx, params.StudentReg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.ReportsTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: студент %q не найден", ErrValidation, params.StudentReg)
		}
		return nil, fmt.Errorf("проверка студента: %w", err)
	}

	// 4. Дайджест и загрузка файла — до открытия транзакции
	var (
		fileHash string
		object   *objectstore.Object
	)
	if params.Evidence != nil {
		fileHash = checksum.Digest(params.Evidence.Data)

		object, err = s.store.Upload(ctx,
			params.Evidence.Data, params.Evidence.OriginalName, params.Evidence.ContentType)
		if err != nil {
			// Недопустимый тип файла — отказ клиенту, не сбой хранилища
			if errors.Is(err, objectstore.ErrUnsupportedMediaType) {
				metrics.ReportsTotal.WithLabelValues("rejected").Inc()
				return nil, err
			}
			metrics.ReportsTotal.WithLabelValues("upload_failed").Inc()
			s.logger.Error("Загрузка доказательства не удалась, отчёт прерван",
				slog.String("student_reg", params.StudentReg),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	// 5. Реляционная транзакция: инцидент + vault-запись атомарно
	incident := &model.Incident{
		StudentReg:    params.StudentReg,
		InvigilatorID: invigilator.ID,
		ExamCode:      params.ExamCode,
		Status:        model.StatusReported,
	}
	var vault *model.EvidenceVaultRecord

	err = s.tx.RunInTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.cases.CreateIncident(txCtx, tx, incident); err != nil {
			return err
		}
		if params.Evidence == nil {
			return nil
		}
		vault = &model.EvidenceVaultRecord{
			CaseID:       incident.ID,
			FileType:     contentTypeOrDefault(params.Evidence.ContentType),
			StorageURL:   object.URL,
			ChecksumHash: fileHash,
			FileSizeKb:   roundKb(len(params.Evidence.Data)),
		}
		return s.cases.CreateEvidenceVault(txCtx, tx, vault)
	})
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("persistence_failed").Inc()
		if object != nil {
			// Объект уже загружен — фиксируем осиротевший ключ в логе,
			// очистка остаётся внешней задаче (мусор, не порча данных).
			s.logger.Warn("Транзакция не прошла, объект осиротел в хранилище",
				slog.String("orphan_key", object.Key),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	result := &SubmitResult{
		Incident:       incident,
		Vault:          vault,
		EvidenceSynced: true,
	}

	// 6. Best-effort запись документа в документное хранилище
	if params.Evidence != nil {
		description := params.Description
		if description == "" {
			description = "No description provided"
		}
		doc := &model.EvidenceDocument{
			IncidentID:       incident.ID,
			StudentReg:       params.StudentReg,
			Description:      description,
			URL:              object.URL,
			ExternalObjectID: object.Key,
			FileType:         contentTypeOrDefault(params.Evidence.ContentType),
			OriginalName:     params.Evidence.OriginalName,
			UploadedAt:       vault.CapturedAt,
		}
		if err := s.docs.Put(ctx, doc); err != nil {
			// Вторичная запись: инцидент уже зафиксирован, возвращаем успех
			// с признаком рассинхронизации для последующего ремонта.
			s.logger.Warn("Вторичная запись документа доказательства не прошла",
				slog.Int64("incident_id", incident.ID),
				slog.String("error", err.Error()),
			)
			result.EvidenceSynced = false
		} else {
			result.Document = doc
		}
	}

	metrics.ReportsTotal.WithLabelValues("success").Inc()

	s.logger.Info("Отчёт зарегистрирован",
		slog.Int64("incident_id", incident.ID),
		slog.String("student_reg", params.StudentReg),
		slog.String("exam_code", params.ExamCode),
		slog.Int64("invigilator_id", invigilator.ID),
		slog.Bool("with_evidence", params.Evidence != nil),
		slog.Bool("evidence_synced", result.EvidenceSynced),
	)

	return result, nil
}

// contentTypeOrDefault возвращает MIME-тип или application/octet-stream.
func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

// roundKb переводит размер в байтах в килобайты с округлением до ближайшего.
func roundKb(sizeBytes int) int {
	return (sizeBytes + 512) / 1024
}
