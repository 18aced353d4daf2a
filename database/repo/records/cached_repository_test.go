package records

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anoixa/story-overlay/cache/types"
	"github.com/anoixa/story-overlay/database/models"
)

// fakeCache 基于 map 的缓存实现，序列化行为与真实实现一致
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Set(key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Get(key string, dest interface{}) error {
	raw, ok := f.data[key]
	if !ok {
		return types.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Delete(key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeCache) Exists(key string) (bool, error) {
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeCache) Close() error { return nil }

func setupCachedRepo(t *testing.T) (*CachedRepository, *Repository, *fakeCache) {
	inner := NewRepository(setupTestDB(t))
	cache := newFakeCache()
	return NewCachedRepository(inner, cache, time.Minute), inner, cache
}

func TestCachedGetAccepted_ServesFromCache(t *testing.T) {
	repo, inner, _ := setupCachedRepo(t)
	ctx := context.Background()

	require.NoError(t, inner.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "alice")))
	changed, err := inner.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	require.True(t, changed)

	record, err := repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	require.Equal(t, "a.gif", record.Filename)

	// 绕过缓存直接删库，缓存命中时仍返回旧值
	require.NoError(t, inner.db.Where("for_url = ?", "/story/1").Delete(&models.ImageRecord{}).Error)

	record, err = repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "a.gif", record.Filename)
}

func TestCachedGetAccepted_NegativeCaching(t *testing.T) {
	repo, inner, _ := setupCachedRepo(t)
	ctx := context.Background()

	_, err := repo.GetAccepted(ctx, "/story/1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 绕过装饰器写入，负缓存期间仍然报告不存在
	require.NoError(t, inner.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	changed, err := inner.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = repo.GetAccepted(ctx, "/story/1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCachedRepository_WritesInvalidate(t *testing.T) {
	repo, _, _ := setupCachedRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))

	count, err := repo.CountPending(ctx, "/story/1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// 经过装饰器的采纳应立刻反映到后续读取
	changed, err := repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	require.True(t, changed)

	count, err = repo.CountPending(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	record, err := repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "a.gif", record.Filename)

	// 重新提交把记录打回待审，缓存同步失效
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	_, err = repo.GetAccepted(ctx, "/story/1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
