package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)

	// 验证连接并确保根目录存在
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
	}
	if err := s.ensureRoot(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return s, nil
}

// ensureRoot 创建根目录（已存在时忽略）
func (s *WebDAVStorage) ensureRoot(ctx context.Context) error {
	if s.rootPath == "" {
		return s.callWithContext(ctx, func() error {
			_, err := s.client.ReadDir("/")
			return err
		})
	}
	return s.callWithContext(ctx, func() error {
		if err := s.client.MkdirAll(s.rootPath, os.FileMode(0755)); err != nil && !isCollectionExistsError(err) {
			return err
		}
		return nil
	})
}

// callWithContext gowebdav 客户端不接收 context，包一层以支持取消
func (s *WebDAVStorage) callWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(filename string) string {
	if s.rootPath != "" {
		return s.rootPath + "/" + filename
	}
	return "/" + filename
}

// isCollectionExistsError 判断是否为目录已存在的错误
func isCollectionExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, marker := range []string{"already exists", "conflict", "Conflict", "409", "Method Not Allowed", "405"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, filename string, file io.Reader) error {
	if !IsValidStorageName(filename) {
		return fmt.Errorf("invalid storage name: %s", filename)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	fullPath := s.fullPath(filename)
	err = s.callWithContext(ctx, func() error {
		return s.client.Write(fullPath, data, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", filename, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, filename string) (io.ReadSeeker, error) {
	if !IsValidStorageName(filename) {
		return nil, fmt.Errorf("invalid storage name: %s", filename)
	}

	fullPath := s.fullPath(filename)

	var data []byte
	err := s.callWithContext(ctx, func() error {
		var readErr error
		data, readErr = s.client.Read(fullPath)
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return bytes.NewReader(data), nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, filename string) error {
	if !IsValidStorageName(filename) {
		return fmt.Errorf("invalid storage name: %s", filename)
	}

	fullPath := s.fullPath(filename)
	err := s.callWithContext(ctx, func() error {
		return s.client.Remove(fullPath)
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", filename, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, filename string) (bool, error) {
	if !IsValidStorageName(filename) {
		return false, fmt.Errorf("invalid storage name: %s", filename)
	}

	fullPath := s.fullPath(filename)

	var exists bool
	err := s.callWithContext(ctx, func() error {
		_, statErr := s.client.Stat(fullPath)
		if statErr != nil {
			if gowebdav.IsErrNotFound(statErr) {
				exists = false
				return nil
			}
			return statErr
		}
		exists = true
		return nil
	})
	return exists, err
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	return s.callWithContext(ctx, func() error {
		root := s.rootPath
		if root == "" {
			root = "/"
		}
		_, err := s.client.ReadDir(root)
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
