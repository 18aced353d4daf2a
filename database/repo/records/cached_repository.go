package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/story-overlay/cache/types"
	"github.com/anoixa/story-overlay/database/models"
	"gorm.io/gorm"
)

// DefaultCacheTTL 默认缓存过期时间
const DefaultCacheTTL = time.Minute

// CachedRepository 带缓存的记录仓库装饰器。
// 重写流水线对每张图都要查一次已采纳记录和待审计数，
// 这两类点查按 forURL 缓存；该 forURL 的任何写入都让缓存失效。
type CachedRepository struct {
	repo  RepositoryInterface
	cache types.Cache
	ttl   time.Duration
}

// cachedLookup 缓存的查询结果，Found=false 表示"确认无采纳记录"
type cachedLookup struct {
	Found  bool                `json:"found"`
	Record *models.ImageRecord `json:"record,omitempty"`
}

// NewCachedRepository 创建带缓存的记录仓库
func NewCachedRepository(repo RepositoryInterface, cache types.Cache, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

func acceptedKey(forURL string) string {
	return fmt.Sprintf("records:accepted:%s", forURL)
}

func pendingKey(forURL string) string {
	return fmt.Sprintf("records:pending:%s", forURL)
}

// GetAccepted 获取指定页面路径的已采纳记录，未命中缓存时回源并写入
func (c *CachedRepository) GetAccepted(ctx context.Context, forURL string) (*models.ImageRecord, error) {
	var cached cachedLookup
	if err := c.cache.Get(acceptedKey(forURL), &cached); err == nil {
		if !cached.Found {
			return nil, gorm.ErrRecordNotFound
		}
		return cached.Record, nil
	}

	record, err := c.repo.GetAccepted(ctx, forURL)
	switch {
	case err == nil:
		_ = c.cache.Set(acceptedKey(forURL), cachedLookup{Found: true, Record: record}, c.ttl)
		return record, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 负缓存，避免每张无覆盖图都打到数据库
		_ = c.cache.Set(acceptedKey(forURL), cachedLookup{Found: false}, c.ttl)
		return nil, err
	default:
		return nil, err
	}
}

// CountPending 统计指定页面路径的待审记录数
func (c *CachedRepository) CountPending(ctx context.Context, forURL string) (int64, error) {
	var count int64
	if err := c.cache.Get(pendingKey(forURL), &count); err == nil {
		return count, nil
	}

	count, err := c.repo.CountPending(ctx, forURL)
	if err != nil {
		return 0, err
	}
	_ = c.cache.Set(pendingKey(forURL), count, c.ttl)
	return count, nil
}

// Upsert 插入或替换记录并使该 forURL 的缓存失效
func (c *CachedRepository) Upsert(ctx context.Context, record *models.ImageRecord) error {
	if err := c.repo.Upsert(ctx, record); err != nil {
		return err
	}
	c.invalidate(record.ForURL)
	return nil
}

// Accept 采纳记录并使该 forURL 的缓存失效
func (c *CachedRepository) Accept(ctx context.Context, forURL, filename string) (bool, error) {
	changed, err := c.repo.Accept(ctx, forURL, filename)
	if err == nil {
		c.invalidate(forURL)
	}
	return changed, err
}

// Reject 屏蔽记录并使该 forURL 的缓存失效
func (c *CachedRepository) Reject(ctx context.Context, forURL, filename string) (bool, error) {
	changed, err := c.repo.Reject(ctx, forURL, filename)
	if err == nil {
		c.invalidate(forURL)
	}
	return changed, err
}

// ListAccepted 直接回源，列表查询不走缓存
func (c *CachedRepository) ListAccepted(ctx context.Context) ([]*models.ImageRecord, error) {
	return c.repo.ListAccepted(ctx)
}

// ListPendingForReview 直接回源
func (c *CachedRepository) ListPendingForReview(ctx context.Context) ([]*models.ImageRecord, error) {
	return c.repo.ListPendingForReview(ctx)
}

// CountAccepted 直接回源
func (c *CachedRepository) CountAccepted(ctx context.Context) (int64, error) {
	return c.repo.CountAccepted(ctx)
}

// CountDistinctCredits 直接回源
func (c *CachedRepository) CountDistinctCredits(ctx context.Context) (int64, error) {
	return c.repo.CountDistinctCredits(ctx)
}

func (c *CachedRepository) invalidate(forURL string) {
	_ = c.cache.Delete(acceptedKey(forURL))
	_ = c.cache.Delete(pendingKey(forURL))
}
