package storage

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"backend/internal/app/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

type MinIOClient struct {
	client     *minio.Client
	bucketName string
	region     string
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// NewMinIOClient создает клиент хранилища документов
func NewMinIOClient(cfg config.MinioConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	// Создаем bucket если не существует
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logrus.Infof("Bucket %s created successfully", cfg.Bucket)
	}

	return &MinIOClient{
		client:     client,
		bucketName: cfg.Bucket,
		region:     cfg.Region,
	}, nil
}

func (m *MinIOClient) Bucket() string { return m.bucketName }
func (m *MinIOClient) Region() string { return m.region }

// SanitizeFileName выкидывает из имени файла всё кроме безопасных символов
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// UploadDocument загружает документ заявки и возвращает storage key
func (m *MinIOClient) UploadDocument(ctx context.Context, proposalID uint, fileData []byte, originalFilename, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("proposals/%d/%s_%s", proposalID, uuid.New().String(), SanitizeFileName(originalFilename))

	reader := bytes.NewReader(fileData)
	_, err := m.client.PutObject(ctx, m.bucketName, key, reader, int64(len(fileData)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	logrus.Infof("Document %s uploaded successfully", key)
	return key, nil
}

// DeleteFile удаляет объект из хранилища
func (m *MinIOClient) DeleteFile(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logrus.Infof("File %s deleted successfully", key)
	return nil
}

// PresignedDownloadURL возвращает временный URL для скачивания (15 минут)
func (m *MinIOClient) PresignedDownloadURL(ctx context.Context, key string) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucketName, key, 15*time.Minute, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// FileExists проверяет существует ли объект
func (m *MinIOClient) FileExists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file: %w", err)
	}

	return true, nil
}
