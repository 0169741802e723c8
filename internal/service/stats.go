package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/examtrust/report-module/internal/domain/model"
	"github.com/examtrust/report-module/internal/repository"
)

// RecentReport — запись последнего отчёта для сводки.
type RecentReport struct {
	// ID — номер дела с префиксом CASE-
	ID string `json:"id"`
	// StudentName — имя студента
	StudentName string `json:"studentName"`
	// ReportedAt — время подачи отчёта
	ReportedAt time.Time `json:"reportedAt"`
	// Status — отображаемый статус: pending или review
	Status string `json:"status"`
}

// DashboardStats — сводка для панели наблюдения.
type DashboardStats struct {
	// TotalReports — общее число отчётов
	TotalReports int `json:"totalReports"`
	// PendingReports — число отчётов в статусе REPORTED
	PendingReports int `json:"pendingReports"`
	// Recent — последние отчёты, новые первыми
	Recent []RecentReport `json:"recentReports"`
}

// DashboardService — агрегация сводки по отчётам.
type DashboardService struct {
	cases       repository.CaseRepository
	recentLimit int
	logger      *slog.Logger
}

// NewDashboardService создаёт сервис сводки. recentLimit ограничивает
// число последних отчётов в выдаче.
func NewDashboardService(cases repository.CaseRepository, recentLimit int, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		cases:       cases,
		recentLimit: recentLimit,
		logger:      logger.With(slog.String("component", "dashboard_service")),
	}
}

// Stats собирает сводку: общее число отчётов, число необработанных
// и последние отчёты новые первыми.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	total, err := s.cases.CountIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт отчётов: %w", err)
	}

	pending, err := s.cases.CountIncidentsByStatus(ctx, model.StatusReported)
	if err != nil {
		return nil, fmt.Errorf("подсчёт необработанных отчётов: %w", err)
	}

	recent, err := s.cases.ListRecent(ctx, s.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("выборка последних отчётов: %w", err)
	}

	stats := &DashboardStats{
		TotalReports:   total,
		PendingReports: pending,
		Recent:         make([]RecentReport, 0, len(recent)),
	}
	for _, inc := range recent {
		stats.Recent = append(stats.Recent, RecentReport{
			ID:          fmt.Sprintf("%s%d", casePrefix, inc.ID),
			StudentName: inc.StudentName,
			ReportedAt:  inc.CreatedAt,
			Status:      displayStatus(inc.Status),
		})
	}

	return stats, nil
}

// displayStatus переводит статус хранения в отображаемый:
// REPORTED показывается как pending, остальные — как review.
func displayStatus(status model.IncidentStatus) string {
	if status == model.StatusReported {
		return "pending"
	}
	return "review"
}
