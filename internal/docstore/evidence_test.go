package docstore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/examtrust/report-module/internal/domain/model"
)

// stubDynamo — in-memory реализация dynamoAPI.
type stubDynamo struct {
	items   map[string]map[string]types.AttributeValue
	putErr  error
	getErr  error
	putSeen int
}

func newStubDynamo() *stubDynamo {
	return &stubDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (s *stubDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.putSeen++
	if s.putErr != nil {
		return nil, s.putErr
	}
	keyAttr, ok := params.Item["incident_id"].(*types.AttributeValueMemberN)
	if !ok {
		return nil, errors.New("нет ключа incident_id")
	}
	s.items[keyAttr.Value] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (s *stubDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	keyAttr := params.Key["incident_id"].(*types.AttributeValueMemberN)
	return &dynamodb.GetItemOutput{Item: s.items[keyAttr.Value]}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestPutGet_Roundtrip(t *testing.T) {
	stub := newStubDynamo()
	repo := NewWithAPI(stub, "evidence_documents", testLogger())
	ctx := context.Background()

	doc := &model.EvidenceDocument{
		IncidentID:       42,
		StudentReg:       "STU-001",
		Description:      "phone under the desk",
		URL:              "http://store/evidence/exam_evidence_vault/a.jpg",
		ExternalObjectID: "exam_evidence_vault/a.jpg",
		FileType:         "image/jpeg",
		OriginalName:     "a.jpg",
		UploadedAt:       time.Now().UTC().Truncate(time.Second),
	}

	if err := repo.Put(ctx, doc); err != nil {
		t.Fatalf("Put вернул ошибку: %v", err)
	}

	got, err := repo.GetByIncidentID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByIncidentID вернул ошибку: %v", err)
	}
	if got.StudentReg != doc.StudentReg || got.URL != doc.URL || got.OriginalName != doc.OriginalName {
		t.Errorf("документ искажён при roundtrip: %+v", got)
	}
}

func TestGetByIncidentID_NotFound(t *testing.T) {
	repo := NewWithAPI(newStubDynamo(), "evidence_documents", testLogger())

	_, err := repo.GetByIncidentID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидается ErrNotFound, получено: %v", err)
	}
}

func TestPut_BackendError(t *testing.T) {
	stub := newStubDynamo()
	stub.putErr = errors.New("connection refused")
	repo := NewWithAPI(stub, "evidence_documents", testLogger())

	err := repo.Put(context.Background(), &model.EvidenceDocument{IncidentID: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("ожидается ErrUnavailable, получено: %v", err)
	}
}
