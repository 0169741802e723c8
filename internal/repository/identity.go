package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/examtrust/report-module/internal/domain/model"
)

// IdentityRepository — поиск субъектов инцидента: наблюдателей и студентов.
// Все запросы read-only и race-tolerant: два конкурентных submit могут
// разрешиться в одного и того же наблюдателя без конфликта.
type IdentityRepository interface {
	// InvigilatorByID возвращает наблюдателя по первичному ключу.
	InvigilatorByID(ctx context.Context, id int64) (*model.Invigilator, error)
	// InvigilatorByStaffID возвращает наблюдателя по табельному идентификатору.
	InvigilatorByStaffID(ctx context.Context, staffID string) (*model.Invigilator, error)
	// LatestInvigilator возвращает последнего созданного наблюдателя.
	LatestInvigilator(ctx context.Context) (*model.Invigilator, error)
	// StudentByRegNo возвращает студента по регистрационному номеру.
	StudentByRegNo(ctx context.Context, regNo string) (*model.Student, error)
}

// identityRepo — реализация IdentityRepository.
type identityRepo struct {
	db DBTX
}

// NewIdentityRepository создаёт репозиторий субъектов.
func NewIdentityRepository(db DBTX) IdentityRepository {
	return &identityRepo{db: db}
}

const invigilatorColumns = `id, staff_id, name, created_at`

func (r *identityRepo) scanInvigilator(row pgx.Row) (*model.Invigilator, error) {
	inv := &model.Invigilator{}
	err := row.Scan(&inv.ID, &inv.StaffID, &inv.Name, &inv.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения наблюдателя: %w", err)
	}
	return inv, nil
}

func (r *identityRepo) InvigilatorByID(ctx context.Context, id int64) (*model.Invigilator, error) {
	query := `SELECT ` + invigilatorColumns + ` FROM invigilators WHERE id = $1`
	return r.scanInvigilator(r.db.QueryRow(ctx, query, id))
}

func (r *identityRepo) InvigilatorByStaffID(ctx context.Context, staffID string) (*model.Invigilator, error) {
	query := `SELECT ` + invigilatorColumns + ` FROM invigilators WHERE staff_id = $1`
	return r.scanInvigilator(r.db.QueryRow(ctx, query, staffID))
}

// LatestInvigilator — основа fallback-разрешения: последняя созданная
// запись по убыванию id. ErrNotFound означает пустой справочник.
func (r *identityRepo) LatestInvigilator(ctx context.Context) (*model.Invigilator, error) {
	query := `SELECT ` + invigilatorColumns + ` FROM invigilators ORDER BY id DESC LIMIT 1`
	return r.scanInvigilator(r.db.QueryRow(ctx, query))
}

func (r *identityRepo) StudentByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	query := `SELECT reg_no, name, created_at FROM students WHERE reg_no = $1`

	st := &model.Student{}
	err := r.db.QueryRow(ctx, query, regNo).Scan(&st.RegNo, &st.Name, &st.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения студента: %w", err)
	}
	return st, nil
}
