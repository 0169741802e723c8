// reports.go — обработчики endpoints отчётов о нарушениях.
// POST /api/v1/reports/submit — подача отчёта (multipart)
// GET  /api/v1/reports/verify/{id} — проверка целостности доказательства
// GET  /api/v1/reports/stats — сводка для панели наблюдения
package handlers

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/examtrust/report-module/internal/api/errors"
	"github.com/examtrust/report-module/internal/objectstore"
	"github.com/examtrust/report-module/internal/service"
)

// submitResponse — ответ успешной подачи отчёта.
type submitResponse struct {
	Success bool       `json:"success"`
	Data    submitData `json:"data"`
}

// submitData — полезная нагрузка успешной подачи.
type submitData struct {
	Incident incidentSummary `json:"incident"`
	// Evidence — null, если отчёт подан без файла
	Evidence       *evidenceSummary `json:"evidence"`
	EvidenceSynced bool             `json:"evidenceSynced"`
}

// incidentSummary — сведения о созданном инциденте.
type incidentSummary struct {
	CaseID    string    `json:"caseId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// evidenceSummary — сведения о зафиксированном доказательстве.
type evidenceSummary struct {
	StorageURL   string `json:"storageUrl"`
	ChecksumHash string `json:"checksumHash"`
	FileSizeKb   int    `json:"fileSizeKb"`
}

// evidenceFile извлекает файл доказательства из multipart-формы.
// Каноничное имя поля — evidenceImage; evidence принимается как алиас.
func evidenceFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("evidenceImage")
	if stderrors.Is(err, http.ErrMissingFile) {
		return r.FormFile("evidence")
	}
	return file, header, err
}

// SubmitReport обрабатывает POST /api/v1/reports/submit.
// Multipart form: studentReg, examCode, invigilatorId (обязательно),
// description (опционально), evidenceImage — файл (опционально).
func (h *APIHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	// Жёсткий лимит тела запроса: размер файла + запас на поля формы
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			errors.FileTooLarge(w, fmt.Sprintf("Размер запроса превышает лимит %d байт", h.maxFileSize))
			return
		}
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	params := service.SubmitParams{
		StudentReg:     r.FormValue("studentReg"),
		ExamCode:       r.FormValue("examCode"),
		InvigilatorRef: r.FormValue("invigilatorId"),
		Description:    r.FormValue("description"),
	}

	// Файл доказательства — опционален
	file, header, err := evidenceFile(r)
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > h.maxFileSize {
			errors.FileTooLarge(w, fmt.Sprintf("Файл превышает лимит %d байт", h.maxFileSize))
			return
		}
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			errors.ValidationError(w, "Не удалось прочитать файл доказательства")
			return
		}
		params.Evidence = &service.EvidenceFile{
			Data:         data,
			OriginalName: header.Filename,
			ContentType:  header.Header.Get("Content-Type"),
		}
	case stderrors.Is(err, http.ErrMissingFile):
		// Отчёт без файла допустим
	default:
		errors.ValidationError(w, "Некорректное поле 'evidenceImage'")
		return
	}

	result, err := h.submissions.Submit(r.Context(), params)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	resp := submitResponse{
		Success: true,
		Data: submitData{
			Incident: incidentSummary{
				CaseID:    result.Incident.CaseRef(),
				Status:    string(result.Incident.Status),
				CreatedAt: result.Incident.CreatedAt,
			},
			EvidenceSynced: result.EvidenceSynced,
		},
	}
	if result.Vault != nil {
		resp.Data.Evidence = &evidenceSummary{
			StorageURL:   result.Vault.StorageURL,
			ChecksumHash: result.Vault.ChecksumHash,
			FileSizeKb:   result.Vault.FileSizeKb,
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// writeSubmitError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, service.ErrValidation),
		stderrors.Is(err, service.ErrNoInvigilator):
		errors.ValidationError(w, err.Error())
	case stderrors.Is(err, objectstore.ErrUnsupportedMediaType):
		errors.UnsupportedMediaType(w, err.Error())
	case stderrors.Is(err, service.ErrUploadFailed):
		errors.EvidenceUploadFailed(w, "Загрузка доказательства в хранилище не прошла")
	case stderrors.Is(err, service.ErrPersistenceFailed):
		errors.PersistenceFailed(w, "Фиксация отчёта не прошла, попробуйте позднее")
	default:
		h.logger.Error("Непредвиденная ошибка подачи отчёта", slog.String("error", err.Error()))
		errors.InternalError(w, "Внутренняя ошибка сервиса")
	}
}

// VerifyEvidence обрабатывает GET /api/v1/reports/verify/{id}.
// {id} — номер дела, с префиксом CASE- или без.
func (h *APIHandler) VerifyEvidence(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")

	result, err := h.verifications.Verify(r.Context(), rawID)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrNotFound):
			errors.NotFound(w, err.Error())
		case stderrors.Is(err, service.ErrFetchFailed):
			errors.StorageUnavailable(w, "Объект доказательства недоступен в хранилище")
		default:
			h.logger.Error("Непредвиденная ошибка проверки целостности",
				slog.String("case_id", rawID),
				slog.String("error", err.Error()),
			)
			errors.InternalError(w, "Внутренняя ошибка сервиса")
		}
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Success:            true,
		VerificationResult: result,
	})
}

// verifyResponse — ответ проверки целостности: вердикт под флагом success.
type verifyResponse struct {
	Success bool `json:"success"`
	*service.VerificationResult
}

// DashboardStats обрабатывает GET /api/v1/reports/stats.
func (h *APIHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		h.logger.Error("Ошибка сборки сводки", slog.String("error", err.Error()))
		errors.InternalError(w, "Внутренняя ошибка сервиса")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
