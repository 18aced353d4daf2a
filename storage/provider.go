package storage

import (
	"context"
	"io"
)

// Provider 存储提供者接口
// 覆盖层图片文件按内容寻址命名（哈希+扩展名），保存是幂等操作
type Provider interface {
	// SaveWithContext 保存文件到存储
	SaveWithContext(ctx context.Context, filename string, file io.Reader) error

	// GetWithContext 从存储获取文件
	GetWithContext(ctx context.Context, filename string) (io.ReadSeeker, error)

	// DeleteWithContext 从存储删除文件
	DeleteWithContext(ctx context.Context, filename string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, filename string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}
