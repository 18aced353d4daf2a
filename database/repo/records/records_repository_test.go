package records

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anoixa/story-overlay/database"
	"github.com/anoixa/story-overlay/database/models"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// 私有内存库绑定单连接，避免连接池拿到空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func pendingRecord(forURL, filename, onPage, credits string) *models.ImageRecord {
	return &models.ImageRecord{
		ForURL:   forURL,
		Filename: filename,
		OnPage:   onPage,
		Credits:  credits,
	}
}

func TestUpsert_InsertAndReplace(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "alice")))

	count, err := repo.CountPending(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 同键重复提交覆盖元数据，不产生第二条记录
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1b", "bob")))

	count, err = repo.CountPending(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var stored models.ImageRecord
	require.NoError(t, repo.db.Where("for_url = ? AND filename = ?", "/story/1", "a.gif").First(&stored).Error)
	assert.Equal(t, "/story/1b", stored.OnPage)
	assert.Equal(t, "bob", stored.Credits)
}

func TestUpsert_ResetsModerationState(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	changed, err := repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	require.True(t, changed)

	// 重新提交同一文件把记录打回待审
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))

	_, err = repo.GetAccepted(ctx, "/story/1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, err := repo.CountPending(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAccept_IsConditional(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	// 不存在的记录：无事发生
	changed, err := repo.Accept(ctx, "/story/1", "missing.gif")
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	changed, err = repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	assert.True(t, changed)

	// 已采纳的记录再次采纳：无事发生
	changed, err = repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	assert.False(t, changed)

	// 已采纳的记录不能被屏蔽
	changed, err = repo.Reject(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReject_IsConditional(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	changed, err := repo.Reject(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	assert.True(t, changed)

	// 已屏蔽的记录不能被采纳
	changed, err = repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	assert.False(t, changed)

	count, err := repo.CountPending(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAccept_SecondAcceptForSamePageConflicts(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "b.gif", "/story/1", "")))

	changed, err := repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	require.True(t, changed)

	// 部分唯一索引挡住第二条采纳
	_, err = repo.Accept(ctx, "/story/1", "b.gif")
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// 原有的采纳记录不受影响
	record, err := repo.GetAccepted(ctx, "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "a.gif", record.Filename)
}

func TestAccept_ConcurrentAcceptsSerializeOnIndex(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "b.gif", "/story/1", "")))

	filenames := []string{"a.gif", "b.gif"}
	changed := make([]bool, len(filenames))
	errs := make([]error, len(filenames))

	var wg sync.WaitGroup
	for i, name := range filenames {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed[i], errs[i] = repo.Accept(ctx, "/story/1", name)
		}()
	}
	wg.Wait()

	// 恰好一条胜出，落败方看到存储层报出的重复键错误
	var wins int
	for i := range filenames {
		if errs[i] == nil {
			require.True(t, changed[i])
			wins++
		} else {
			assert.ErrorIs(t, errs[i], gorm.ErrDuplicatedKey)
		}
	}
	assert.Equal(t, 1, wins)

	count, err := repo.CountAccepted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListAccepted_OrdersByPageLengthThenValue(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	for _, page := range []string{"/story/10", "/story/2", "/story/104"} {
		require.NoError(t, repo.Upsert(ctx, pendingRecord(page, page+".gif", page, "")))
		changed, err := repo.Accept(ctx, page, page+".gif")
		require.NoError(t, err)
		require.True(t, changed)
	}

	rows, err := repo.ListAccepted(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "/story/2", rows[0].OnPage)
	assert.Equal(t, "/story/10", rows[1].OnPage)
	assert.Equal(t, "/story/104", rows[2].OnPage)
}

func TestListPendingForReview_SkipsPagesWithAcceptedImage(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "a.gif", "/story/1", "")))
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/1", "b.gif", "/story/1", "")))
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/2", "c.gif", "/story/2", "")))
	require.NoError(t, repo.Upsert(ctx, pendingRecord("/story/2", "d.gif", "/story/2", "")))

	changed, err := repo.Accept(ctx, "/story/1", "a.gif")
	require.NoError(t, err)
	require.True(t, changed)

	rows, err := repo.ListPendingForReview(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "/story/2", row.ForURL)
	}
}

func TestCountDistinctCredits(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	records := []*models.ImageRecord{
		pendingRecord("/story/1", "a.gif", "/story/1", "alice"),
		pendingRecord("/story/2", "b.gif", "/story/2", "alice"),
		pendingRecord("/story/3", "c.gif", "/story/3", "bob"),
		pendingRecord("/story/4", "d.gif", "/story/4", "  "),
		pendingRecord("/story/5", "e.gif", "/story/5", "carol"),
	}
	for _, record := range records {
		require.NoError(t, repo.Upsert(ctx, record))
	}
	for _, record := range records[:4] {
		changed, err := repo.Accept(ctx, record.ForURL, record.Filename)
		require.NoError(t, err)
		require.True(t, changed)
	}

	// alice 双页算一次，空白署名不算，未采纳的 carol 不算
	count, err := repo.CountDistinctCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	total, err := repo.CountAccepted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
