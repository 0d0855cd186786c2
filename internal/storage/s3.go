package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"xlsxfill_srv/internal/config"
)

// Типы хранилищ.
const (
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"
)

// S3Storage хранит файлы в S3-совместимом бакете.
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage создаёт S3-хранилище по конфигурации приложения.
func NewS3Storage(ctx context.Context, cfg config.S3) (*S3Storage, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{client: client, bucket: cfg.Bucket}, nil
}

// Save сохраняет файл в хранилище.
func (s *S3Storage) Save(ctx context.Context, key string, reader io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("сохранение объекта %s: %w", key, err)
	}
	return nil
}

// Get возвращает содержимое файла.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("получение объекта %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete удаляет файл.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("удаление объекта %s: %w", key, err)
	}
	return nil
}

// Exists сообщает о наличии файла.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("проверка объекта %s: %w", key, err)
	}
	return true, nil
}

// JoinPath склеивает элементы ключа объекта.
func (s *S3Storage) JoinPath(elem ...string) string {
	return path.Join(elem...)
}

// NewStorageFromConfig создаёт хранилище по конфигурации и
// оборачивает его логирующим middleware.
func NewStorageFromConfig(cfg config.Config, logger *logrus.Logger) (Storage, error) {
	var (
		st  Storage
		err error
	)

	switch cfg.Storage.Type {
	case StorageTypeS3:
		st, err = NewS3Storage(context.Background(), cfg.Storage.S3)
	case StorageTypeLocal:
		st, err = NewLocalStorage(cfg.Storage.BasePath)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %s", cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewLoggingMiddleware(st, logger), nil
}
