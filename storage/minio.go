package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig MinIO 配置结构
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// minioStorage MinIO (S3 兼容) 存储实现
type minioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage 创建 MinIO 存储提供者
func NewMinioStorage(ctx context.Context, cfg MinioConfig) (Provider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.BucketName, err)
		}
	}

	return &minioStorage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// SaveWithContext 将文件上传到 MinIO
func (s *minioStorage) SaveWithContext(ctx context.Context, filename string, file io.Reader) error {
	if !IsValidStorageName(filename) {
		return fmt.Errorf("invalid storage name: %s", filename)
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucketName, filename, file, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to minio: %w", filename, err)
	}

	return nil
}

// GetWithContext 从 MinIO 获取文件
func (s *minioStorage) GetWithContext(ctx context.Context, filename string) (io.ReadSeeker, error) {
	if !IsValidStorageName(filename) {
		return nil, fmt.Errorf("invalid storage name: %s", filename)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, filename, minio.GetObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return nil, fmt.Errorf("file not found in minio: %s", filename)
		}
		return nil, fmt.Errorf("failed to get object stream from minio for '%s': %w", filename, err)
	}

	return obj, nil
}

// DeleteWithContext 从 MinIO 删除文件
func (s *minioStorage) DeleteWithContext(ctx context.Context, filename string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, filename, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from minio: %w", filename, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *minioStorage) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, filename, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Health 检查存储健康状态
func (s *minioStorage) Health(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

// Name 返回存储名称
func (s *minioStorage) Name() string {
	return "minio"
}
