// Пакет objectstore — клиент объектного хранилища доказательств (S3-совместимого).
// Загружает байтовые буферы под логическую папку и возвращает стабильный URL,
// скачивает объект обратно по URL для проверки целостности.
// Перед загрузкой применяет allow-list типов файлов.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// Ошибки клиента объектного хранилища.
var (
	// ErrUnsupportedMediaType — тип файла не входит в allow-list.
	ErrUnsupportedMediaType = errors.New("недопустимый тип файла")
	// ErrNotFound — объект не существует в хранилище.
	ErrNotFound = errors.New("объект не найден в хранилище")
	// ErrUnavailable — хранилище недоступно (сеть, авторизация, backend).
	ErrUnavailable = errors.New("объектное хранилище недоступно")
)

// allowedExtensions — допустимые расширения файлов доказательств.
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Object — результат загрузки: стабильный URL и ключ объекта.
type Object struct {
	// URL — публичный path-style URL объекта
	URL string
	// Key — ключ объекта в бакете (включая папку)
	Key string
}

// Client — интерфейс клиента объектного хранилища.
// Абстрагирует конкретный backend для координатора и сервиса верификации.
type Client interface {
	// Upload загружает буфер и возвращает URL/ключ объекта.
	Upload(ctx context.Context, data []byte, originalName, contentType string) (*Object, error)
	// Fetch скачивает объект по URL, выданному Upload.
	Fetch(ctx context.Context, objectURL string) ([]byte, error)
}

// s3API — подмножество операций *s3.Client, используемое клиентом.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Client — клиент S3-совместимого хранилища.
type S3Client struct {
	api     s3API
	bucket  string
	folder  string
	baseURL string
	logger  *slog.Logger
}

// Params — параметры подключения к объектному хранилищу.
type Params struct {
	// Endpoint — URL S3-совместимого endpoint (пусто — AWS по умолчанию)
	Endpoint string
	// Region — регион AWS
	Region string
	// Bucket — имя бакета доказательств
	Bucket string
	// Folder — логическая папка для загрузок (например, exam_evidence_vault)
	Folder string
}

// New создаёт S3-клиент хранилища доказательств.
// При заданном Endpoint используется path-style адресация
// (совместимость с minio/localstack-подобными endpoint'ами).
func New(ctx context.Context, p Params, logger *slog.Logger) (*S3Client, error) {
	cfg, err := awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(p.Region))
	if err != nil {
		return nil, fmt.Errorf("загрузка AWS-конфигурации: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(p.Endpoint, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://s3.%s.amazonaws.com", p.Region)
	}

	return NewWithAPI(api, p.Bucket, p.Folder, baseURL, logger), nil
}

// NewWithAPI создаёт клиент поверх готового S3 API (используется в тестах).
func NewWithAPI(api s3API, bucket, folder, baseURL string, logger *slog.Logger) *S3Client {
	return &S3Client{
		api:     api,
		bucket:  bucket,
		folder:  strings.Trim(folder, "/"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.With(slog.String("component", "objectstore")),
	}
}

// Upload загружает буфер под папку клиента.
// Тип файла проверяется по расширению оригинального имени ДО каких-либо
// обращений к хранилищу; недопустимый тип — ErrUnsupportedMediaType.
func (c *S3Client) Upload(ctx context.Context, data []byte, originalName, contentType string) (*Object, error) {
	ext := strings.ToLower(path.Ext(originalName))
	canonicalType, ok := allowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: расширение %q (допустимые: jpg, jpeg, png, pdf)",
			ErrUnsupportedMediaType, ext)
	}
	if contentType == "" {
		contentType = canonicalType
	}

	key := c.folder + "/" + uuid.New().String() + ext

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	obj := &Object{
		URL: fmt.Sprintf("%s/%s/%s", c.baseURL, c.bucket, key),
		Key: key,
	}

	c.logger.Debug("Объект загружен",
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.String("content_type", contentType),
	)

	return obj, nil
}

// Fetch скачивает объект по URL, выданному Upload.
// URL вне бакета клиента считается несуществующим объектом.
func (c *S3Client) Fetch(ctx context.Context, objectURL string) ([]byte, error) {
	key, err := c.keyFromURL(objectURL)
	if err != nil {
		return nil, err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение тела объекта: %v", ErrUnavailable, err)
	}
	return data, nil
}

// keyFromURL извлекает ключ объекта из path-style URL клиента.
func (c *S3Client) keyFromURL(objectURL string) (string, error) {
	prefix := c.baseURL + "/" + c.bucket + "/"
	if !strings.HasPrefix(objectURL, prefix) {
		return "", fmt.Errorf("%w: URL %q вне бакета %s", ErrNotFound, objectURL, c.bucket)
	}
	key := strings.TrimPrefix(objectURL, prefix)
	if key == "" {
		return "", fmt.Errorf("%w: пустой ключ в URL %q", ErrNotFound, objectURL)
	}
	return key, nil
}
