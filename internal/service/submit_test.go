package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/examtrust/report-module/internal/checksum"
	"github.com/examtrust/report-module/internal/metrics"
	"github.com/examtrust/report-module/internal/objectstore"
)

// submitEnv — собранный координатор с fake-зависимостями.
type submitEnv struct {
	identities *fakeIdentityRepo
	cases      *fakeCaseRepo
	store      *fakeObjectStore
	docs       *fakeDocStore
	svc        *SubmissionService
}

func newSubmitEnv(t *testing.T) *submitEnv {
	t.Helper()

	identities := newFakeIdentityRepo()
	identities.addStudent("REG-100", "Смирнов")
	identities.addInvigilator(1, "STF-001", "Иванов")

	cases := newFakeCaseRepo(identities)
	store := newFakeObjectStore()
	docs := newFakeDocStore()

	logger := discardLogger()
	resolver := NewChainResolver(identities, true, logger)
	svc := NewSubmissionService(cases, identities, docs, store, resolver, fakeTxRunner{}, logger)

	return &submitEnv{
		identities: identities,
		cases:      cases,
		store:      store,
		docs:       docs,
		svc:        svc,
	}
}

func validParams() SubmitParams {
	return SubmitParams{
		StudentReg:     "REG-100",
		ExamCode:       "MATH-101",
		InvigilatorRef: "1",
		Description:    "Шпаргалка на столе",
		Evidence: &EvidenceFile{
			Data:         []byte("evidence bytes"),
			OriginalName: "photo.jpg",
			ContentType:  "image/jpeg",
		},
	}
}

func TestSubmit_WithEvidence(t *testing.T) {
	env := newSubmitEnv(t)

	result, err := env.svc.Submit(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Submit() вернул ошибку: %v", err)
	}

	if result.Incident.ID == 0 {
		t.Error("Incident.ID не заполнен")
	}
	if result.Incident.Status != "REPORTED" {
		t.Errorf("Status = %q, ожидается REPORTED", result.Incident.Status)
	}
	if result.Vault == nil {
		t.Fatal("Vault отсутствует в результате")
	}
	if want := checksum.Digest([]byte("evidence bytes")); result.Vault.ChecksumHash != want {
		t.Errorf("ChecksumHash = %q, ожидается %q", result.Vault.ChecksumHash, want)
	}
	// 14 байт → округление к ближайшему килобайту вниз
	if result.Vault.FileSizeKb != 0 {
		t.Errorf("FileSizeKb = %d, ожидается 0", result.Vault.FileSizeKb)
	}
	if !result.EvidenceSynced {
		t.Error("EvidenceSynced = false, ожидается true")
	}
	if result.Document == nil {
		t.Fatal("Document отсутствует в результате")
	}
	if result.Document.Description != "Шпаргалка на столе" {
		t.Errorf("Description = %q", result.Document.Description)
	}

	// Документ должен быть в документном хранилище
	if _, err := env.docs.GetByIncidentID(context.Background(), result.Incident.ID); err != nil {
		t.Errorf("Документ не найден в документном хранилище: %v", err)
	}
}

func TestSubmit_WithoutEvidence(t *testing.T) {
	env := newSubmitEnv(t)

	params := validParams()
	params.Evidence = nil

	result, err := env.svc.Submit(context.Background(), params)
	if err != nil {
		t.Fatalf("Submit() вернул ошибку: %v", err)
	}
	if result.Vault != nil {
		t.Error("Vault должен отсутствовать без файла")
	}
	if result.Document != nil {
		t.Error("Document должен отсутствовать без файла")
	}
	if len(env.docs.docs) != 0 {
		t.Error("В документном хранилище не должно быть записей")
	}
}

func TestSubmit_DefaultDescription(t *testing.T) {
	env := newSubmitEnv(t)

	params := validParams()
	params.Description = ""

	result, err := env.svc.Submit(context.Background(), params)
	if err != nil {
		t.Fatalf("Submit() вернул ошибку: %v", err)
	}
	if result.Document.Description != "No description provided" {
		t.Errorf("Description = %q, ожидается значение по умолчанию", result.Document.Description)
	}
}

func TestSubmit_MissingRequiredFields(t *testing.T) {
	env := newSubmitEnv(t)

	tests := []struct {
		name   string
		mutate func(*SubmitParams)
	}{
		{"без studentReg", func(p *SubmitParams) { p.StudentReg = "" }},
		{"без examCode", func(p *SubmitParams) { p.ExamCode = "" }},
		{"без invigilatorId", func(p *SubmitParams) { p.InvigilatorRef = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			_, err := env.svc.Submit(context.Background(), params)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, ожидается ErrValidation", err)
			}
		})
	}

	if len(env.cases.incidents) != 0 || env.store.uploads != 0 {
		t.Error("Ошибки валидации не должны оставлять побочных эффектов")
	}
}

func TestSubmit_UnknownStudent(t *testing.T) {
	env := newSubmitEnv(t)

	params := validParams()
	params.StudentReg = "REG-999"

	_, err := env.svc.Submit(context.Background(), params)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, ожидается ErrValidation", err)
	}
	if env.store.uploads != 0 {
		t.Error("Файл не должен загружаться при неизвестном студенте")
	}
}

func TestSubmit_UnsupportedMediaType(t *testing.T) {
	env := newSubmitEnv(t)

	params := validParams()
	params.Evidence.OriginalName = "malware.exe"

	_, err := env.svc.Submit(context.Background(), params)
	if !errors.Is(err, objectstore.ErrUnsupportedMediaType) {
		t.Fatalf("err = %v, ожидается ErrUnsupportedMediaType", err)
	}
	if len(env.cases.incidents) != 0 {
		t.Error("Инцидент не должен создаваться при недопустимом типе файла")
	}
}

// Недопустимый тип файла — отказ клиенту: счётчик rejected, а не upload_failed.
func TestSubmit_UnsupportedMediaTypeMetric(t *testing.T) {
	env := newSubmitEnv(t)

	rejected := metrics.ReportsTotal.WithLabelValues("rejected")
	uploadFailed := metrics.ReportsTotal.WithLabelValues("upload_failed")
	rejectedBefore := testutil.ToFloat64(rejected)
	uploadFailedBefore := testutil.ToFloat64(uploadFailed)

	params := validParams()
	params.Evidence.OriginalName = "malware.exe"

	if _, err := env.svc.Submit(context.Background(), params); !errors.Is(err, objectstore.ErrUnsupportedMediaType) {
		t.Fatalf("err = %v, ожидается ErrUnsupportedMediaType", err)
	}

	if got := testutil.ToFloat64(rejected) - rejectedBefore; got != 1 {
		t.Errorf("rejected вырос на %v, ожидается 1", got)
	}
	if got := testutil.ToFloat64(uploadFailed) - uploadFailedBefore; got != 0 {
		t.Errorf("upload_failed вырос на %v, ожидается 0", got)
	}
}

// Неудачная загрузка файла не должна оставлять ни одной записи.
func TestSubmit_UploadFailureNoWrites(t *testing.T) {
	env := newSubmitEnv(t)
	env.store.uploadErr = fmt.Errorf("хранилище недоступно")

	_, err := env.svc.Submit(context.Background(), validParams())
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, ожидается ErrUploadFailed", err)
	}
	if len(env.cases.incidents) != 0 {
		t.Error("Инцидент не должен создаваться при неудачной загрузке")
	}
	if len(env.cases.vaults) != 0 {
		t.Error("Vault-запись не должна создаваться при неудачной загрузке")
	}
	if len(env.docs.docs) != 0 {
		t.Error("Документ не должен создаваться при неудачной загрузке")
	}
}

// Инцидент и vault-запись создаются атомарно: ошибка vault откатывает оба.
func TestSubmit_AtomicIncidentAndVault(t *testing.T) {
	env := newSubmitEnv(t)
	env.cases.vaultErr = fmt.Errorf("нарушение ограничения")

	_, err := env.svc.Submit(context.Background(), validParams())
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("err = %v, ожидается ErrPersistenceFailed", err)
	}
	if len(env.cases.incidents) != 0 {
		t.Error("Инцидент должен откатываться вместе с vault-записью")
	}
	if len(env.cases.vaults) != 0 {
		t.Error("Vault-записей быть не должно")
	}
}

// Неудачная вторичная запись документа не отменяет успех подачи.
func TestSubmit_DocStoreFailureIsNonFatal(t *testing.T) {
	env := newSubmitEnv(t)
	env.docs.putErr = fmt.Errorf("документное хранилище недоступно")

	result, err := env.svc.Submit(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Submit() вернул ошибку: %v", err)
	}
	if result.EvidenceSynced {
		t.Error("EvidenceSynced = true, ожидается false")
	}
	if result.Document != nil {
		t.Error("Document должен быть nil при неудачной вторичной записи")
	}
	// Реляционная фиксация при этом состоялась
	if len(env.cases.incidents) != 1 || len(env.cases.vaults) != 1 {
		t.Error("Инцидент и vault-запись должны быть сохранены")
	}
}

func TestSubmit_FallbackInvigilator(t *testing.T) {
	env := newSubmitEnv(t)
	env.identities.addInvigilator(5, "STF-005", "Петров")

	params := validParams()
	params.InvigilatorRef = "NO-SUCH"

	result, err := env.svc.Submit(context.Background(), params)
	if err != nil {
		t.Fatalf("Submit() вернул ошибку: %v", err)
	}
	if result.Incident.InvigilatorID != 5 {
		t.Errorf("InvigilatorID = %d, ожидается 5 (fallback)", result.Incident.InvigilatorID)
	}
}

func TestSubmit_RoundKb(t *testing.T) {
	tests := []struct {
		bytes int
		want  int
	}{
		{0, 0},
		{511, 0},
		{512, 1},
		{1024, 1},
		{1536, 2},
		{5 * 1024 * 1024, 5120},
	}

	for _, tt := range tests {
		if got := roundKb(tt.bytes); got != tt.want {
			t.Errorf("roundKb(%d) = %d, ожидается %d", tt.bytes, got, tt.want)
		}
	}
}
