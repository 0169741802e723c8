package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/examtrust/report-module/internal/domain/model"
)

// RecentIncident — строка ограниченной проекции «последние N инцидентов»
// для dashboard внешнего CRUD-слоя.
type RecentIncident struct {
	ID          int64
	StudentReg  string
	StudentName string
	Status      model.IncidentStatus
	CreatedAt   time.Time
}

// CaseRepository — интерфейс доступа к инцидентам и vault-записям доказательств.
type CaseRepository interface {
	// CreateIncident создаёт инцидент. Заполняет ID и CreatedAt.
	CreateIncident(ctx context.Context, db DBTX, inc *model.Incident) error
	// CreateEvidenceVault создаёт vault-запись доказательства. Заполняет ID и CapturedAt.
	CreateEvidenceVault(ctx context.Context, db DBTX, rec *model.EvidenceVaultRecord) error
	// GetIncident возвращает инцидент по ID.
	GetIncident(ctx context.Context, id int64) (*model.Incident, error)
	// GetEvidenceVaultByCaseID возвращает vault-запись по ID инцидента.
	GetEvidenceVaultByCaseID(ctx context.Context, caseID int64) (*model.EvidenceVaultRecord, error)
	// UpdateIncidentStatus переводит инцидент в новый статус.
	UpdateIncidentStatus(ctx context.Context, id int64, status model.IncidentStatus) error
	// CountIncidents возвращает общее количество инцидентов.
	CountIncidents(ctx context.Context) (int, error)
	// CountIncidentsByStatus возвращает количество инцидентов в статусе.
	CountIncidentsByStatus(ctx context.Context, status model.IncidentStatus) (int, error)
	// ListRecent возвращает не более limit последних инцидентов с именами студентов.
	ListRecent(ctx context.Context, limit int) ([]*RecentIncident, error)
}

// caseRepo — реализация CaseRepository.
// Методы создания принимают DBTX явно: координатор вызывает их
// внутри одной транзакции через TxRunner.
type caseRepo struct {
	db DBTX
}

// NewCaseRepository создаёт репозиторий инцидентов.
// db используется для read-операций; write-операции получают DBTX параметром.
func NewCaseRepository(db DBTX) CaseRepository {
	return &caseRepo{db: db}
}

func (r *caseRepo) CreateIncident(ctx context.Context, db DBTX, inc *model.Incident) error {
	query := `
		INSERT INTO incidents (student_reg, invigilator_id, exam_code, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := db.QueryRow(ctx, query,
		inc.StudentReg, inc.InvigilatorID, inc.ExamCode, inc.Status,
	).Scan(&inc.ID, &inc.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: студент %q или наблюдатель %d не существует",
				ErrForeignKey, inc.StudentReg, inc.InvigilatorID)
		}
		return fmt.Errorf("ошибка создания инцидента: %w", err)
	}
	return nil
}

func (r *caseRepo) CreateEvidenceVault(ctx context.Context, db DBTX, rec *model.EvidenceVaultRecord) error {
	query := `
		INSERT INTO evidence_vault (case_id, file_type, storage_url, checksum_hash, file_size_kb)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, captured_at`

	err := db.QueryRow(ctx, query,
		rec.CaseID, rec.FileType, rec.StorageURL, rec.ChecksumHash, rec.FileSizeKb,
	).Scan(&rec.ID, &rec.CapturedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: инцидент %d не существует", ErrForeignKey, rec.CaseID)
		}
		return fmt.Errorf("ошибка создания vault-записи: %w", err)
	}
	return nil
}

func (r *caseRepo) GetIncident(ctx context.Context, id int64) (*model.Incident, error) {
	query := `
		SELECT id, student_reg, invigilator_id, exam_code, status, created_at
		FROM incidents
		WHERE id = $1`

	inc := &model.Incident{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inc.ID, &inc.StudentReg, &inc.InvigilatorID, &inc.ExamCode, &inc.Status, &inc.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения инцидента: %w", err)
	}
	return inc, nil
}

func (r *caseRepo) GetEvidenceVaultByCaseID(ctx context.Context, caseID int64) (*model.EvidenceVaultRecord, error) {
	query := `
		SELECT id, case_id, file_type, storage_url, checksum_hash, file_size_kb, captured_at
		FROM evidence_vault
		WHERE case_id = $1`

	rec := &model.EvidenceVaultRecord{}
	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&rec.ID, &rec.CaseID, &rec.FileType, &rec.StorageURL,
		&rec.ChecksumHash, &rec.FileSizeKb, &rec.CapturedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения vault-записи: %w", err)
	}
	return rec, nil
}

// UpdateIncidentStatus меняет только status: инциденты никогда не
// удаляются и остальные поля после создания неизменны (аудит).
func (r *caseRepo) UpdateIncidentStatus(ctx context.Context, id int64, status model.IncidentStatus) error {
	query := `UPDATE incidents SET status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса инцидента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepo) CountIncidents(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта инцидентов: %w", err)
	}
	return count, nil
}

func (r *caseRepo) CountIncidentsByStatus(ctx context.Context, status model.IncidentStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM incidents WHERE status = $1`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта инцидентов по статусу: %w", err)
	}
	return count, nil
}

func (r *caseRepo) ListRecent(ctx context.Context, limit int) ([]*RecentIncident, error) {
	query := `
		SELECT i.id, i.student_reg, COALESCE(s.name, i.student_reg), i.status, i.created_at
		FROM incidents i
		LEFT JOIN students s ON s.reg_no = i.student_reg
		ORDER BY i.created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения последних инцидентов: %w", err)
	}
	defer rows.Close()

	var result []*RecentIncident
	for rows.Next() {
		ri := &RecentIncident{}
		if err := rows.Scan(&ri.ID, &ri.StudentReg, &ri.StudentName, &ri.Status, &ri.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования инцидента: %w", err)
		}
		result = append(result, ri)
	}
	return result, rows.Err()
}
