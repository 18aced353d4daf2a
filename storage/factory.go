package storage

import (
	"context"
	"fmt"

	"github.com/anoixa/story-overlay/config"
)

// NewFromConfig 根据配置创建存储提供者
func NewFromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.StorageType {
	case "", "local":
		return NewLocalStorage(cfg.StorageLocalPath)
	case "minio", "s3":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessKey,
			SecretAccessKey: cfg.StorageMinioSecretKey,
			BucketName:      cfg.StorageMinioBucket,
			UseSSL:          cfg.StorageMinioUseSSL,
		})
	case "webdav":
		return NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.StorageWebDAVURL,
			Username: cfg.StorageWebDAVUsername,
			Password: cfg.StorageWebDAVPassword,
			RootPath: cfg.StorageWebDAVRoot,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
