// handler.go — основной обработчик API Report Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/examtrust/report-module/internal/service"
)

// APIHandler — основной обработчик API Report Module.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health        *HealthHandler
	submissions   *service.SubmissionService
	verifications *service.VerificationService
	dashboard     *service.DashboardService
	maxFileSize   int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxFileSize — лимит размера файла доказательства в байтах.
func NewAPIHandler(
	health *HealthHandler,
	submissions *service.SubmissionService,
	verifications *service.VerificationService,
	dashboard *service.DashboardService,
	maxFileSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		submissions:   submissions,
		verifications: verifications,
		dashboard:     dashboard,
		maxFileSize:   maxFileSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
