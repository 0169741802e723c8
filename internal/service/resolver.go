// resolver.go — политика разрешения наблюдателя по идентификатору из формы.
//
// Идентификатор приходит от клиента в свободном виде: числовой первичный
// ключ либо табельный код (PROF-001). Цепочка разрешения:
//
//	ExactID → ByStaffCode → MostRecentFallback (опционально)
//
// Fallback на последнего созданного наблюдателя молча переатрибутирует
// отчёт при битой ссылке, поэтому он вынесен в явную настройку
// (RM_RESOLVER_FALLBACK) и логируется как WARN.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/examtrust/report-module/internal/domain/model"
	"github.com/examtrust/report-module/internal/repository"
)

// InvigilatorResolver — инжектируемая политика разрешения наблюдателя.
type InvigilatorResolver interface {
	// Resolve возвращает наблюдателя для идентификатора из формы.
	// Если никого разрешить нельзя — ErrNoInvigilator.
	Resolve(ctx context.Context, raw string) (*model.Invigilator, error)
}

// ChainResolver — стандартная цепочка разрешения.
type ChainResolver struct {
	identities    repository.IdentityRepository
	allowFallback bool
	logger        *slog.Logger
}

// NewChainResolver создаёт цепочку разрешения наблюдателя.
// allowFallback=false превращает неразрешённый идентификатор в жёсткую ошибку.
func NewChainResolver(identities repository.IdentityRepository, allowFallback bool, logger *slog.Logger) *ChainResolver {
	return &ChainResolver{
		identities:    identities,
		allowFallback: allowFallback,
		logger:        logger.With(slog.String("component", "invigilator_resolver")),
	}
}

func (r *ChainResolver) Resolve(ctx context.Context, raw string) (*model.Invigilator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: пустой идентификатор наблюдателя", ErrValidation)
	}

	// 1. Числовой первичный ключ
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		inv, err := r.identities.InvigilatorByID(ctx, id)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("поиск наблюдателя по ID: %w", err)
		}
	}

	// 2. Табельный идентификатор
	inv, err := r.identities.InvigilatorByStaffID(ctx, raw)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("поиск наблюдателя по табельному коду: %w", err)
	}

	if !r.allowFallback {
		return nil, fmt.Errorf("%w: идентификатор %q не разрешён (fallback отключён)", ErrNoInvigilator, raw)
	}

	// 3. Fallback: последний созданный наблюдатель.
	// Отчёт будет атрибутирован произвольной существующей записи.
	fallback, err := r.identities.LatestInvigilator(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: справочник наблюдателей пуст", ErrNoInvigilator)
		}
		return nil, fmt.Errorf("поиск fallback-наблюдателя: %w", err)
	}

	r.logger.Warn("Идентификатор наблюдателя не разрешён, отчёт атрибутирован fallback-записи",
		slog.String("requested", raw),
		slog.Int64("fallback_id", fallback.ID),
		slog.String("fallback_name", fallback.Name),
	)

	return fallback, nil
}
