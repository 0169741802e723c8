// Пакет docstore — документное хранилище записей доказательств (DynamoDB).
// Хранит денормализованные EvidenceDocument по ключу incident_id для
// reporting UI. Запись best-effort: авторитетным остаётся реляционный
// evidence_vault, этот слой — восстановимая проекция.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/examtrust/report-module/internal/domain/model"
)

// Ошибки документного хранилища.
var (
	// ErrNotFound — документ для инцидента отсутствует.
	ErrNotFound = errors.New("документ доказательства не найден")
	// ErrUnavailable — документное хранилище недоступно.
	ErrUnavailable = errors.New("документное хранилище недоступно")
)

// EvidenceRepository — интерфейс документного хранилища доказательств.
type EvidenceRepository interface {
	// Put сохраняет документ доказательства (перезапись по ключу допустима).
	Put(ctx context.Context, doc *model.EvidenceDocument) error
	// GetByIncidentID возвращает документ по ID инцидента.
	GetByIncidentID(ctx context.Context, incidentID int64) (*model.EvidenceDocument, error)
}

// dynamoAPI — подмножество операций *dynamodb.Client, используемое репозиторием.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoRepository — реализация EvidenceRepository поверх DynamoDB.
type DynamoRepository struct {
	api    dynamoAPI
	table  string
	logger *slog.Logger
}

// New создаёт репозиторий документов доказательств.
// endpoint — URL DynamoDB-совместимого endpoint (пусто — AWS по умолчанию).
func New(ctx context.Context, endpoint, region, table string, logger *slog.Logger) (*DynamoRepository, error) {
	cfg, err := awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("загрузка AWS-конфигурации: %w", err)
	}

	api := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return NewWithAPI(api, table, logger), nil
}

// NewWithAPI создаёт репозиторий поверх готового DynamoDB API (используется в тестах).
func NewWithAPI(api dynamoAPI, table string, logger *slog.Logger) *DynamoRepository {
	return &DynamoRepository{
		api:    api,
		table:  table,
		logger: logger.With(slog.String("component", "docstore")),
	}
}

func (r *DynamoRepository) Put(ctx context.Context, doc *model.EvidenceDocument) error {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("сериализация документа: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.logger.Debug("Документ доказательства сохранён",
		slog.Int64("incident_id", doc.IncidentID),
	)
	return nil
}

func (r *DynamoRepository) GetByIncidentID(ctx context.Context, incidentID int64) (*model.EvidenceDocument, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"incident_id": &types.AttributeValueMemberN{
				Value: strconv.FormatInt(incidentID, 10),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	doc := &model.EvidenceDocument{}
	if err := attributevalue.UnmarshalMap(out.Item, doc); err != nil {
		return nil, fmt.Errorf("десериализация документа: %w", err)
	}
	return doc, nil
}
