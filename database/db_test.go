package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anoixa/story-overlay/database/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	sentinel := errors.New("boom")

	err := Transaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.ImageRecord{
			ForURL:   "/images/a.gif",
			Filename: "hash.gif",
			OnPage:   "/story/1",
		}).Error; err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, db.Model(&models.ImageRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAutoMigrate_InstallsPartialUniqueIndex(t *testing.T) {
	db := setupTestDB(t)

	// 同一页面第二条 accepted 记录必须被部分唯一索引拒绝
	require.NoError(t, db.Create(&models.ImageRecord{
		ForURL: "/images/a.gif", Filename: "a.gif", OnPage: "/story/1", Accepted: true,
	}).Error)
	err := db.Create(&models.ImageRecord{
		ForURL: "/images/a.gif", Filename: "b.gif", OnPage: "/story/1", Accepted: true,
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestAutoMigrate_IsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, AutoMigrate(db))
}
