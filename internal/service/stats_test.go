package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/examtrust/report-module/internal/domain/model"
)

func TestStats_Empty(t *testing.T) {
	env := newSubmitEnv(t)
	dashboard := NewDashboardService(env.cases, 5, discardLogger())

	stats, err := dashboard.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() вернул ошибку: %v", err)
	}
	if stats.TotalReports != 0 || stats.PendingReports != 0 {
		t.Errorf("счётчики = %d/%d, ожидается 0/0", stats.TotalReports, stats.PendingReports)
	}
	if len(stats.Recent) != 0 {
		t.Errorf("Recent содержит %d записей, ожидается 0", len(stats.Recent))
	}
}

func TestStats_CountsAndRecent(t *testing.T) {
	env := newSubmitEnv(t)

	var lastID int64
	for i := 0; i < 7; i++ {
		lastID = submitCase(t, env, []byte("data"))
	}

	// Два инцидента выходят из статуса REPORTED
	if err := env.cases.UpdateIncidentStatus(context.Background(), 1, model.StatusUnderReview); err != nil {
		t.Fatalf("UpdateIncidentStatus() вернул ошибку: %v", err)
	}
	if err := env.cases.UpdateIncidentStatus(context.Background(), 2, model.StatusResolved); err != nil {
		t.Fatalf("UpdateIncidentStatus() вернул ошибку: %v", err)
	}

	dashboard := NewDashboardService(env.cases, 5, discardLogger())

	stats, err := dashboard.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() вернул ошибку: %v", err)
	}

	if stats.TotalReports != 7 {
		t.Errorf("TotalReports = %d, ожидается 7", stats.TotalReports)
	}
	if stats.PendingReports != 5 {
		t.Errorf("PendingReports = %d, ожидается 5", stats.PendingReports)
	}
	if len(stats.Recent) != 5 {
		t.Fatalf("Recent содержит %d записей, ожидается 5", len(stats.Recent))
	}

	// Новые первыми, номер дела с префиксом CASE-
	wantID := fmt.Sprintf("CASE-%d", lastID)
	if stats.Recent[0].ID != wantID {
		t.Errorf("Recent[0].ID = %q, ожидается %q", stats.Recent[0].ID, wantID)
	}
	if stats.Recent[0].StudentName != "Смирнов" {
		t.Errorf("StudentName = %q, ожидается Смирнов", stats.Recent[0].StudentName)
	}
	if stats.Recent[0].Status != "pending" {
		t.Errorf("Status = %q, ожидается pending", stats.Recent[0].Status)
	}
}

func TestDisplayStatus(t *testing.T) {
	if displayStatus(model.StatusReported) != "pending" {
		t.Error("REPORTED должен отображаться как pending")
	}
	for _, s := range []model.IncidentStatus{model.StatusUnderReview, model.StatusResolved, model.StatusDismissed} {
		if displayStatus(s) != "review" {
			t.Errorf("статус %s должен отображаться как review", s)
		}
	}
}
