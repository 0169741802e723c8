package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/examtrust/report-module/internal/checksum"
	"github.com/examtrust/report-module/internal/metrics"
	"github.com/examtrust/report-module/internal/objectstore"
	"github.com/examtrust/report-module/internal/repository"
)

// casePrefix — человекочитаемый префикс номера дела, допустимый на входе.
const casePrefix = "CASE-"

// VerificationResult — результат проверки целостности доказательства.
type VerificationResult struct {
	// IsAuthentic — true, если живой дайджест совпал с зафиксированным
	IsAuthentic bool `json:"isAuthentic"`
	// OriginalHash — дайджест, зафиксированный при подаче
	OriginalHash string `json:"originalHash"`
	// LiveHash — дайджест, вычисленный по текущим байтам из хранилища
	LiveHash string `json:"liveHash"`
	// StorageURL — адрес объекта в хранилище
	StorageURL string `json:"storageUrl"`
}

// VerificationService — проверка целостности доказательств.
type VerificationService struct {
	cases  repository.CaseRepository
	store  objectstore.Client
	logger *slog.Logger
}

// NewVerificationService создаёт сервис проверки целостности.
func NewVerificationService(cases repository.CaseRepository, store objectstore.Client, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		cases:  cases,
		store:  store,
		logger: logger.With(slog.String("component", "verification_service")),
	}
}

// Verify скачивает доказательство по номеру дела, пересчитывает дайджест
// и сравнивает его с зафиксированным при подаче. Результат — суждение
// о целостности, а не ошибка: расхождение дайджестов возвращается как
// IsAuthentic=false с обоими значениями.
func (s *VerificationService) Verify(ctx context.Context, rawID string) (*VerificationResult, error) {
	caseID, err := parseCaseID(rawID)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: номер дела %q не распознан", ErrNotFound, rawID)
	}

	vault, err := s.cases.GetEvidenceVaultByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("%w: доказательство для дела %d не найдено", ErrNotFound, caseID)
		}
		return nil, fmt.Errorf("чтение vault-записи: %w", err)
	}
	if vault.StorageURL == "" || vault.ChecksumHash == "" {
		metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: vault-запись дела %d неполна", ErrNotFound, caseID)
	}

	data, err := s.store.Fetch(ctx, vault.StorageURL)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("fetch_failed").Inc()
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: объект дела %d отсутствует в хранилище", ErrFetchFailed, caseID)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	liveHash := checksum.Digest(data)
	result := &VerificationResult{
		IsAuthentic:  liveHash == vault.ChecksumHash,
		OriginalHash: vault.ChecksumHash,
		LiveHash:     liveHash,
		StorageURL:   vault.StorageURL,
	}

	if result.IsAuthentic {
		metrics.VerificationsTotal.WithLabelValues("authentic").Inc()
	} else {
		metrics.VerificationsTotal.WithLabelValues("tampered").Inc()
		s.logger.Warn("Дайджест доказательства не совпал",
			slog.Int64("case_id", caseID),
			slog.String("original_hash", vault.ChecksumHash),
			slog.String("live_hash", liveHash),
		)
	}

	return result, nil
}

// parseCaseID разбирает номер дела, принимая форму с префиксом CASE- и без.
func parseCaseID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, casePrefix)
	return strconv.ParseInt(trimmed, 10, 64)
}
