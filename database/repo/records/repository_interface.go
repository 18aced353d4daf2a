package records

import (
	"context"

	"github.com/anoixa/story-overlay/database/models"
)

// RepositoryInterface 图片记录仓库接口
type RepositoryInterface interface {
	// Upsert 插入或整行替换 (for_url, filename) 对应的记录
	Upsert(ctx context.Context, record *models.ImageRecord) error
	// GetAccepted 获取指定页面路径的已采纳记录
	GetAccepted(ctx context.Context, forURL string) (*models.ImageRecord, error)
	// CountPending 统计指定页面路径的待审记录数
	CountPending(ctx context.Context, forURL string) (int64, error)
	// Accept 将待审记录置为已采纳，返回是否有记录被修改
	Accept(ctx context.Context, forURL, filename string) (bool, error)
	// Reject 将待审记录置为已屏蔽，返回是否有记录被修改
	Reject(ctx context.Context, forURL, filename string) (bool, error)
	// ListAccepted 列出全部已采纳记录，按 (LENGTH(on_page), on_page) 排序
	ListAccepted(ctx context.Context) ([]*models.ImageRecord, error)
	// ListPendingForReview 列出待人工审核的记录（所属 for_url 尚无已采纳记录）
	ListPendingForReview(ctx context.Context) ([]*models.ImageRecord, error)
	// CountAccepted 统计已采纳记录总数
	CountAccepted(ctx context.Context) (int64, error)
	// CountDistinctCredits 统计已采纳记录中互不相同的非空署名数
	CountDistinctCredits(ctx context.Context) (int64, error)
}

// 确保 Repository 实现了 RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
var _ RepositoryInterface = (*CachedRepository)(nil)
